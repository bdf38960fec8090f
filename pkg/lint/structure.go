package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// MaxSkillLines is the line count above which a SKILL.md should move
// material into reference files.
const MaxSkillLines = 500

var lintNamePattern = regexp.MustCompile(`^[a-z][a-z0-9\-]*$`)

// KnownFields are the front matter keys skillkit understands.
var KnownFields = []string{
	"name", "description", "license", "compatibility", "metadata",
	"allowed-tools", "hooks", "context",
}

// Structure validates the front matter block, naming conventions and the
// layout of the skill directory.
type Structure struct{}

// Name implements Analyzer.
func (Structure) Name() string { return "structure" }

// Analyze implements Analyzer.
func (a Structure) Analyze(s *SkillFile) []Finding {
	var out []Finding
	issue := func(format string, args ...any) {
		out = append(out, finding(a.Name(), SeverityIssue, fmt.Sprintf(format, args...)))
	}
	warn := func(format string, args ...any) {
		out = append(out, finding(a.Name(), SeverityWarning, fmt.Sprintf(format, args...)))
	}

	if s.FileName != skills.SkillFileName && strings.EqualFold(s.FileName, skills.SkillFileName) {
		issue("%s must be uppercase (case-sensitive)", skills.SkillFileName)
	}

	out = append(out, a.frontMatter(s)...)

	lines := strings.Count(s.Content, "\n") + 1
	if lines > MaxSkillLines {
		warn("%s is %d lines (recommend <%d, use references)", skills.SkillFileName, lines, MaxSkillLines)
	}

	if _, err := os.Stat(filepath.Join(s.Dir, "LICENSE")); err != nil {
		warn("No LICENSE file found")
	}

	if len(out) == 0 {
		out = append(out, finding(a.Name(), SeverityGood, "Structure is valid"))
	}
	return out
}

func (a Structure) frontMatter(s *SkillFile) []Finding {
	var out []Finding
	issue := func(msg string) { out = append(out, finding(a.Name(), SeverityIssue, msg)) }
	warn := func(msg string) { out = append(out, finding(a.Name(), SeverityWarning, msg)) }

	switch {
	case !s.HasFrontMatter:
		issue("File must start with --- (YAML frontmatter)")
		return out
	case !s.Closed:
		issue("Missing closing --- for frontmatter")
		return out
	}

	if strings.Contains(s.RawFrontMatter, "\t") {
		issue("YAML contains tabs (use spaces only)")
	}
	if s.YAMLErr != nil {
		issue(fmt.Sprintf("Invalid YAML: %v", s.YAMLErr))
		return out
	}
	if s.NotAMap || len(s.Keys) == 0 {
		issue("Frontmatter must be a YAML mapping")
		return out
	}

	if !s.Has("name") {
		issue("Missing required field: name")
	} else {
		for _, msg := range NameProblems(s.String("name")) {
			issue(msg)
		}
	}

	if !s.Has("description") {
		issue("Missing required field: description")
	} else {
		desc := s.String("description")
		n := len([]rune(desc))
		if n > skills.MaxDescriptionLength {
			issue(fmt.Sprintf("Description too long: %d chars (max %d)", n, skills.MaxDescriptionLength))
		} else if n > skills.RecommendedDescriptionLength {
			warn(fmt.Sprintf("Description is %d chars (recommend <%d)", n, skills.RecommendedDescriptionLength))
		}
	}

	for _, key := range s.Keys {
		if !isKnownField(key) {
			warn("Unknown field: " + key)
		}
	}
	return out
}

// NameProblems lists every naming convention that name violates.
func NameProblems(name string) []string {
	if name == "" {
		return []string{"Missing required field: name"}
	}

	var problems []string
	if n := len([]rune(name)); n > skills.MaxNameLength {
		problems = append(problems, fmt.Sprintf("Name too long: %d chars (max %d)", n, skills.MaxNameLength))
	}
	if name != strings.ToLower(name) {
		problems = append(problems, "Name must be lowercase")
	}
	if strings.Contains(name, "_") {
		problems = append(problems, "Use hyphens, not underscores")
	}
	if strings.Contains(name, " ") {
		problems = append(problems, "No spaces allowed in name")
	}
	if !lintNamePattern.MatchString(name) {
		problems = append(problems, "Name must start with letter, contain only lowercase, numbers, hyphens")
	}
	return problems
}

func isKnownField(key string) bool {
	for _, k := range KnownFields {
		if k == key {
			return true
		}
	}
	return false
}
