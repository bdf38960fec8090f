package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// DefaultCharBudget is the default limit for all descriptions combined.
const DefaultCharBudget = 15000

// BudgetWarnRatio is the share of the budget above which a warning is
// raised.
const BudgetWarnRatio = 0.8

// BudgetEntry is one skill's share of the description budget.
type BudgetEntry struct {
	Name  string `json:"name"`
	Chars int    `json:"chars"`
	Path  string `json:"path"`
}

// BudgetReport summarises description budget usage across skills.
type BudgetReport struct {
	Total       int           `json:"total"`
	Budget      int           `json:"budget"`
	Remaining   int           `json:"remaining"`
	PercentUsed float64       `json:"percent_used"`
	OverBudget  bool          `json:"over_budget"`
	Breakdown   []BudgetEntry `json:"breakdown"`
}

// Findings turns the report into lint findings.
func (r *BudgetReport) Findings() []Finding {
	const analyzer = "budget"
	switch {
	case r.OverBudget:
		biggest := r.Breakdown[0]
		return []Finding{finding(analyzer, SeverityIssue,
			fmt.Sprintf("Descriptions total %d of %d characters, over budget; biggest is %s (%d chars)",
				r.Total, r.Budget, biggest.Name, biggest.Chars))}
	case r.PercentUsed > BudgetWarnRatio*100:
		return []Finding{finding(analyzer, SeverityWarning,
			fmt.Sprintf("Descriptions use %.1f%% of the %d character budget, consider shortening", r.PercentUsed, r.Budget))}
	default:
		return []Finding{finding(analyzer, SeverityGood,
			fmt.Sprintf("Descriptions total %d of %d characters", r.Total, r.Budget))}
	}
}

// ScanSkillDirs collects the skills found at each dir. A dir holding a
// SKILL.md is a single skill; otherwise each immediate subdirectory with a
// SKILL.md is one. Unreadable documents are skipped.
func ScanSkillDirs(dirs ...string) []*SkillFile {
	var found []*SkillFile
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, skills.SkillFileName)); err == nil {
			if s, err := LoadSkill(dir); err == nil {
				found = append(found, s)
			}
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			sub := filepath.Join(dir, e.Name())
			if _, err := os.Stat(filepath.Join(sub, skills.SkillFileName)); err != nil {
				continue
			}
			if s, err := LoadSkill(sub); err == nil {
				found = append(found, s)
			}
		}
	}
	return found
}

// AnalyzeBudget sums description lengths against budget; a non-positive
// budget selects DefaultCharBudget.
func AnalyzeBudget(found []*SkillFile, budget int) *BudgetReport {
	if budget <= 0 {
		budget = DefaultCharBudget
	}

	r := &BudgetReport{Budget: budget}
	for _, s := range found {
		n := len([]rune(s.String("description")))
		r.Total += n
		r.Breakdown = append(r.Breakdown, BudgetEntry{Name: s.Name(), Chars: n, Path: s.Dir})
	}
	sort.SliceStable(r.Breakdown, func(i, j int) bool {
		return r.Breakdown[i].Chars > r.Breakdown[j].Chars
	})

	r.Remaining = budget - r.Total
	r.PercentUsed = float64(r.Total) / float64(budget) * 100
	r.OverBudget = r.Total > budget
	return r
}
