package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Token thresholds for the parts of a skill that enter the context window.
const (
	DescriptionTokenLimit = 100
	BodyTokenWarning      = 2000
	BodyTokenLimit        = 4000
)

// EstimateTokens approximates tokens as 1.3 per whitespace-separated word.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}

// TokenUsage is the estimated cost of one part of a skill.
type TokenUsage struct {
	Name   string `json:"name"`
	Chars  int    `json:"chars"`
	Words  int    `json:"words"`
	Tokens int    `json:"tokens"`
}

func usage(name, text string) TokenUsage {
	return TokenUsage{
		Name:   name,
		Chars:  len([]rune(text)),
		Words:  len(strings.Fields(text)),
		Tokens: EstimateTokens(text),
	}
}

// TokenReport breaks down the context cost of a skill.
type TokenReport struct {
	Description TokenUsage   `json:"description"`
	Body        TokenUsage   `json:"body"`
	Total       TokenUsage   `json:"total"`
	References  []TokenUsage `json:"references,omitempty"`
}

// MeasureTokens estimates the cost of the description, the body, the whole
// file and each reference file under references/ plus REFERENCES.md.
func MeasureTokens(s *SkillFile) TokenReport {
	r := TokenReport{
		Description: usage("description", s.String("description")),
		Body:        usage("body", s.Body),
		Total:       usage(s.FileName, s.Content),
	}

	matches, _ := filepath.Glob(filepath.Join(s.Dir, "references", "*.md"))
	sort.Strings(matches)
	matches = append(matches, filepath.Join(s.Dir, "REFERENCES.md"))
	for _, m := range matches {
		content, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		rel, _ := filepath.Rel(s.Dir, m)
		r.References = append(r.References, usage(filepath.ToSlash(rel), string(content)))
	}
	return r
}

// Tokens estimates how much context a skill consumes.
type Tokens struct{}

// Name implements Analyzer.
func (Tokens) Name() string { return "tokens" }

// Analyze implements Analyzer.
func (a Tokens) Analyze(s *SkillFile) []Finding {
	r := MeasureTokens(s)
	var out []Finding
	add := func(sev Severity, msg string) { out = append(out, finding(a.Name(), sev, msg)) }

	if r.Description.Tokens > DescriptionTokenLimit {
		add(SeverityWarning, fmt.Sprintf("Description is ~%d tokens (recommend <%d)", r.Description.Tokens, DescriptionTokenLimit))
	} else {
		add(SeverityGood, fmt.Sprintf("Description is efficient (~%d tokens)", r.Description.Tokens))
	}

	switch {
	case r.Body.Tokens > BodyTokenLimit:
		add(SeverityWarning, fmt.Sprintf("Body is ~%d tokens (too large, will impact context)", r.Body.Tokens))
	case r.Body.Tokens > BodyTokenWarning:
		add(SeverityWarning, fmt.Sprintf("Body is ~%d tokens (consider splitting to references)", r.Body.Tokens))
	default:
		add(SeverityGood, fmt.Sprintf("Body size is reasonable (~%d tokens)", r.Body.Tokens))
	}

	for _, ref := range r.References {
		add(SeverityInfo, fmt.Sprintf("%s: %d words, ~%d tokens (loaded on demand)", ref.Name, ref.Words, ref.Tokens))
	}
	return out
}
