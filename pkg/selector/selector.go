// Package selector picks the skills whose descriptions match a request.
package selector

import (
	"context"
	"sort"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultMinScore is the lowest score a skill needs to be selected.
const DefaultMinScore = 0.2

// Match is one selected skill.
type Match struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Score       float64  `json:"score"`
	Terms       []string `json:"matched_terms,omitempty"`
}

// Selector ranks catalog skills against a request.
type Selector struct {
	catalog    skills.Catalog
	scorer     Scorer
	minScore   float64
	maxResults int
}

// Option configures a Selector.
type Option func(*Selector)

// WithScorer replaces the default TokenScorer.
func WithScorer(scorer Scorer) Option {
	return func(s *Selector) { s.scorer = scorer }
}

// WithMinScore sets the selection threshold.
func WithMinScore(score float64) Option {
	return func(s *Selector) { s.minScore = score }
}

// WithMaxResults limits the number of matches; zero means no limit.
func WithMaxResults(n int) Option {
	return func(s *Selector) { s.maxResults = n }
}

// FromConfig applies selector.min_score and selector.max_results.
func FromConfig() Option {
	return func(s *Selector) {
		if viper.IsSet("selector.min_score") {
			s.minScore = viper.GetFloat64("selector.min_score")
		}
		s.maxResults = viper.GetInt("selector.max_results")
	}
}

// New returns a Selector over catalog.
func New(catalog skills.Catalog, opts ...Option) *Selector {
	s := &Selector{
		catalog:  catalog,
		scorer:   TokenScorer{},
		minScore: DefaultMinScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog being ranked.
func (s *Selector) Catalog() skills.Catalog {
	return s.catalog
}

// Select returns the skills scoring at least the threshold, highest score
// first. Equal scores keep catalog registration order, so the result is
// fully determined by the catalog and the request.
func (s *Selector) Select(ctx context.Context, request string) []Match {
	ctx, span := telemetry.StartSpan(ctx, "selector.select")
	defer span.End()

	all := s.rank(request)
	matches := make([]Match, 0, len(all))
	for _, m := range all {
		if m.Score > 0 && m.Score >= s.minScore {
			matches = append(matches, m)
		}
	}
	if s.maxResults > 0 && len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}

	span.SetAttributes(
		attribute.Int("selector.candidates", len(all)),
		attribute.Int("selector.matches", len(matches)),
	)
	logger.G(ctx).WithField("matches", len(matches)).WithField("candidates", len(all)).Debug("skills selected")
	return matches
}

// Explain scores every skill, including those below the threshold.
func (s *Selector) Explain(request string) []Match {
	return s.rank(request)
}

func (s *Selector) rank(request string) []Match {
	descriptors := s.catalog.All()
	matches := make([]Match, 0, len(descriptors))
	for _, d := range descriptors {
		m := Match{
			Name:        d.Name,
			Description: d.Description,
			Score:       s.scorer.Score(request, d.Description),
		}
		if ts, ok := s.scorer.(TokenScorer); ok {
			m.Terms = ts.MatchedTerms(request, d.Description)
		}
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
