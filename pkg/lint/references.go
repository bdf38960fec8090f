package lint

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// References checks the local links of a SKILL.md: that each target
// exists inside the skill directory and that the link graph has no cycles.
type References struct{}

// Name implements Analyzer.
func (References) Name() string { return "references" }

// Analyze implements Analyzer.
func (a References) Analyze(s *SkillFile) []Finding {
	doc, err := skills.ParseDocument([]byte(s.Body))
	if err != nil {
		return []Finding{finding(a.Name(), SeverityIssue, fmt.Sprintf("Cannot parse body: %v", err))}
	}

	var out []Finding
	add := func(sev Severity, msg string) { out = append(out, finding(a.Name(), sev, msg)) }

	broken := 0
	for _, link := range doc.Links {
		clean := path.Clean(link)
		if clean == ".." || strings.HasPrefix(clean, "../") {
			add(SeverityWarning, fmt.Sprintf("Reference %s points outside the skill directory and will not be loadable", link))
			continue
		}
		if _, err := os.Stat(filepath.Join(s.Dir, filepath.FromSlash(clean))); err != nil {
			add(SeverityIssue, fmt.Sprintf("Broken reference: %s", link))
			broken++
		}
	}

	if err := skills.CheckReferenceCycles(s.Name(), s.Dir, s.FileName, doc.Links); err != nil {
		add(SeverityIssue, err.Error())
	} else if len(doc.Links) > 0 && broken == 0 {
		add(SeverityGood, fmt.Sprintf("%d references resolve", len(doc.Links)))
	}
	return out
}
