// Package lint checks skill documents for authoring problems: structure,
// how well descriptions trigger selection, context cost, portability of
// front matter fields and the combined description budget.
package lint

import (
	"github.com/pkg/errors"
)

// Severity ranks a finding.
type Severity string

// Severities, from most to least serious.
const (
	SeverityIssue   Severity = "issue"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityGood    Severity = "good"
)

// Finding is a single observation made by an analyzer.
type Finding struct {
	Analyzer string   `json:"analyzer"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Analyzer inspects one skill.
type Analyzer interface {
	Name() string
	Analyze(skill *SkillFile) []Finding
}

// Report collects the findings for one skill.
type Report struct {
	Skill    string    `json:"skill"`
	Path     string    `json:"path"`
	Findings []Finding `json:"findings"`
}

// Count returns the number of findings with severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// HasIssues reports whether any finding is an issue.
func (r *Report) HasIssues() bool {
	return r.Count(SeverityIssue) > 0
}

// DefaultAnalyzers returns every analyzer in reporting order.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{
		Structure{},
		SearchOptimization{},
		Triggers{},
		Tokens{},
		Compatibility{},
		References{},
	}
}

// Lint loads the skill at path (a skill directory or its SKILL.md) and runs
// the analyzers over it. With no analyzers the defaults are used.
func Lint(path string, analyzers ...Analyzer) (*Report, error) {
	skill, err := LoadSkill(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load skill at %s", path)
	}
	if len(analyzers) == 0 {
		analyzers = DefaultAnalyzers()
	}

	report := &Report{Skill: skill.Name(), Path: skill.Path}
	for _, a := range analyzers {
		report.Findings = append(report.Findings, a.Analyze(skill)...)
	}
	return report, nil
}

func finding(analyzer string, s Severity, msg string) Finding {
	return Finding{Analyzer: analyzer, Severity: s, Message: msg}
}
