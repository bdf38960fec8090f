package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// MinDescriptionLength is the length under which a description is likely
// too vague to trigger reliably.
const MinDescriptionLength = 50

type pattern struct {
	re      *regexp.Regexp
	message string
}

// Matched against the lowercased description.
var workflowHints = []pattern{
	{regexp.MustCompile(`\bruns?\b.*\bcommands?\b`), "Mentions running commands (workflow hint)"},
	{regexp.MustCompile(`\bexecutes?\b`), `Uses "execute" (workflow hint)`},
	{regexp.MustCompile(`\bdiscover\w*\s+\w*\s*dynamically`), "Mentions dynamic discovery (workflow hint)"},
	{regexp.MustCompile(`\bstep\s*\d`), "References steps (workflow hint)"},
	{regexp.MustCompile(`\bworkflow\b`), `Uses "workflow" in description`},
	{regexp.MustCompile(`\bprocess\b.*\b(files?|data)\b`), "Describes processing (workflow hint)"},
	{regexp.MustCompile(`\bparses?\b`), `Uses "parse" (workflow hint)`},
	{regexp.MustCompile(`\banalyzes?\s+and\s+`), "Describes analysis process (workflow hint)"},
	{regexp.MustCompile(`\bfirst\b.*\bthen\b`), "Sequential process description (workflow hint)"},
	{regexp.MustCompile(`\bby\s+(running|executing|calling)`), "Describes how it works"},
}

var firstPerson = []pattern{
	{regexp.MustCompile(`(?i)\bI\s+(can|will|am|help)\b`), `Uses first person "I"`},
	{regexp.MustCompile(`(?i)\bmy\b`), `Uses first person "my"`},
	{regexp.MustCompile(`(?i)\bI'm\b`), `Uses first person "I'm"`},
	{regexp.MustCompile(`(?i)\bI'll\b`), `Uses first person "I'll"`},
}

var goodPatterns = []pattern{
	{regexp.MustCompile(`(?i)^[A-Z][^.]+\.`), "Starts with capability statement"},
	{regexp.MustCompile(`(?i)\buse\s+when\b`), `Includes "Use when" triggers`},
	{regexp.MustCompile(`(?i)\buser\s+(says?|asks?|provides?|mentions?)\b`), "References user actions"},
	{quotedExamples, "Includes example phrases"},
}

var quotedExamples = regexp.MustCompile(`'[^']+'\s*,?\s*'[^']+'`)

// SearchOptimization checks that a description states when to use the
// skill rather than how the skill works, since selection only ever sees the
// description.
type SearchOptimization struct{}

// Name implements Analyzer.
func (SearchOptimization) Name() string { return "search-optimization" }

// Analyze implements Analyzer.
func (a SearchOptimization) Analyze(s *SkillFile) []Finding {
	desc := s.String("description")
	if desc == "" {
		return []Finding{finding(a.Name(), SeverityIssue, "No description field found")}
	}
	return a.AnalyzeDescription(desc)
}

// AnalyzeDescription runs the description checks on desc alone.
func (a SearchOptimization) AnalyzeDescription(desc string) []Finding {
	var out []Finding
	add := func(s Severity, msg string) { out = append(out, finding(a.Name(), s, msg)) }

	lower := strings.ToLower(desc)
	for _, p := range workflowHints {
		if p.re.MatchString(lower) {
			add(SeverityIssue, "CSO Violation: "+p.message)
		}
	}
	for _, p := range firstPerson {
		if p.re.MatchString(desc) {
			add(SeverityIssue, "Style Issue: "+p.message)
		}
	}
	for _, p := range goodPatterns {
		if p.re.MatchString(desc) {
			add(SeverityGood, p.message)
		}
	}

	n := len([]rune(desc))
	switch {
	case n > skills.MaxDescriptionLength:
		add(SeverityIssue, fmt.Sprintf("Description is %d chars (max %d)", n, skills.MaxDescriptionLength))
	case n > skills.RecommendedDescriptionLength:
		add(SeverityWarning, fmt.Sprintf("Description is %d chars (recommend <%d)", n, skills.RecommendedDescriptionLength))
	}
	if n < MinDescriptionLength {
		add(SeverityWarning, "Description may be too short/vague")
	}
	if !quotedExamples.MatchString(desc) {
		add(SeverityWarning, "Consider adding example trigger phrases in quotes")
	}
	return out
}
