package lint

import (
	"fmt"
	"strings"
)

// TriggerDomain is a named family of domain vocabulary.
type TriggerDomain struct {
	Name  string
	Terms []string
}

var triggerActions = []string{
	"show", "list", "get", "fetch", "create", "make", "build",
	"update", "edit", "delete", "remove", "add", "check", "view",
	"find", "search", "analyze", "run", "execute", "start", "stop",
}

var triggerQuestions = []string{
	"what is", "how do", "how to", "where is", "why", "when",
	"can you", "could you", "please", "help me", "i need",
}

var triggerDomains = []TriggerDomain{
	{"github", []string{"github", "repo", "repository", "issue", "pr", "pull request",
		"commit", "branch", "fork", "clone", "star", "release"}},
	{"documentation", []string{"docs", "documentation", "api", "reference", "guide",
		"tutorial", "how to use", "example"}},
	{"testing", []string{"test", "tests", "testing", "spec", "coverage", "tdd",
		"unit test", "integration"}},
	{"devops", []string{"deploy", "deployment", "ci", "cd", "pipeline", "docker",
		"kubernetes", "k8s", "terraform", "aws", "cloud"}},
	{"database", []string{"database", "db", "sql", "query", "schema", "migration",
		"table", "index"}},
	{"ui", []string{"ui", "ux", "design", "component", "page", "form", "button",
		"layout", "style", "css"}},
}

// maxMissing caps the suggested missing terms per category.
const maxMissing = 5

// Coverage is the trigger vocabulary found in a description for one
// category.
type Coverage struct {
	Category string
	Found    []string
	Missing  []string
	Ratio    float64
}

// TriggerCoverage computes action, question and domain coverage for desc.
// Domains are only reported when at least one of their terms is present.
func TriggerCoverage(desc string) []Coverage {
	lower := strings.ToLower(desc)

	actions := coverage("actions", lower, triggerActions)
	questions := coverage("questions", lower, triggerQuestions)
	questions.Missing = nil
	out := []Coverage{actions, questions}

	for _, d := range triggerDomains {
		c := coverage(d.Name, lower, d.Terms)
		if len(c.Found) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Substring matching, so "pr" is found inside "provides".
func coverage(category, lower string, terms []string) Coverage {
	c := Coverage{Category: category}
	for _, t := range terms {
		if strings.Contains(lower, t) {
			c.Found = append(c.Found, t)
		} else if len(c.Missing) < maxMissing {
			c.Missing = append(c.Missing, t)
		}
	}
	c.Ratio = float64(len(c.Found)) / float64(len(terms))
	return c
}

// Triggers reports how much common request vocabulary a description covers.
type Triggers struct{}

// Name implements Analyzer.
func (Triggers) Name() string { return "triggers" }

// Analyze implements Analyzer.
func (a Triggers) Analyze(s *SkillFile) []Finding {
	desc := s.String("description")
	if desc == "" {
		return nil
	}

	var out []Finding
	add := func(sev Severity, msg string) { out = append(out, finding(a.Name(), sev, msg)) }

	cov := TriggerCoverage(desc)
	for _, c := range cov {
		if len(c.Found) == 0 {
			continue
		}
		add(SeverityInfo, fmt.Sprintf("%s: %.0f%% coverage (%s)", c.Category, c.Ratio*100, strings.Join(c.Found, ", ")))
		if len(c.Missing) > 0 {
			add(SeverityInfo, fmt.Sprintf("%s: consider adding %s", c.Category, strings.Join(c.Missing, ", ")))
		}
	}

	if cov[0].Ratio < 0.1 {
		add(SeverityWarning, "Add action verbs: 'show', 'list', 'create', 'analyze'")
	}
	if len(cov[1].Found) == 0 {
		add(SeverityWarning, "Consider question phrases: 'how do I', 'what is'")
	}
	if !quotedExamples.MatchString(desc) {
		add(SeverityWarning, "Add quoted example phrases users might say")
	}
	return out
}
