package selector

import "strings"

// Scorer rates how well a skill description fits a request. Scores must
// depend only on the two strings.
type Scorer interface {
	Score(request, description string) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(request, description string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(request, description string) float64 {
	return f(request, description)
}

// TokenScorer scores by literal term overlap. Each request term found in the
// description is worth 1/Saturation, so a single trigger hit scores the same
// in a short or a long request. PhraseBonus is added for every quoted example
// phrase of the description that appears in the request. The score is capped
// at 1.
type TokenScorer struct {
	PhraseBonus float64
	Saturation  int
}

const (
	// DefaultPhraseBonus is used when TokenScorer.PhraseBonus is zero.
	DefaultPhraseBonus = 0.25
	// DefaultSaturation is used when TokenScorer.Saturation is zero.
	DefaultSaturation = 3
)

// Score implements Scorer.
func (s TokenScorer) Score(request, description string) float64 {
	score, _ := s.explain(request, description)
	return score
}

// MatchedTerms returns the request terms found in the description.
func (s TokenScorer) MatchedTerms(request, description string) []string {
	_, matched := s.explain(request, description)
	return matched
}

func (s TokenScorer) explain(request, description string) (float64, []string) {
	descTerms := Terms(description)
	reqTerms := Terms(request)
	if len(descTerms) == 0 || len(reqTerms) == 0 {
		return 0, nil
	}

	vocabulary := toSet(descTerms...)
	var matched []string
	for _, t := range reqTerms {
		if vocabulary[t] {
			matched = append(matched, t)
		}
	}
	saturation := s.Saturation
	if saturation <= 0 {
		saturation = DefaultSaturation
	}
	score := float64(len(matched)) / float64(min(len(reqTerms), saturation))

	bonus := s.PhraseBonus
	if bonus == 0 {
		bonus = DefaultPhraseBonus
	}
	normalizedRequest := " " + normalize(request) + " "
	for _, phrase := range QuotedPhrases(description) {
		if strings.Contains(normalizedRequest, " "+phrase+" ") {
			score += bonus
		}
	}

	if score > 1 {
		score = 1
	}
	return score, matched
}
