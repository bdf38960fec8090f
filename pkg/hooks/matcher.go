package hooks

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Matcher selects tool names. "*" or an empty pattern matches everything;
// "A|B" matches either alternative and each alternative is a glob.
type Matcher struct {
	all   bool
	globs []glob.Glob
}

// CompileMatcher parses a matcher pattern.
func CompileMatcher(pattern string) (*Matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == "*" {
		return &Matcher{all: true}, nil
	}

	m := &Matcher{}
	for _, alt := range strings.Split(pattern, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		g, err := glob.Compile(alt)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid matcher '%s'", pattern)
		}
		m.globs = append(m.globs, g)
	}
	if len(m.globs) == 0 {
		return &Matcher{all: true}, nil
	}
	return m, nil
}

// Match reports whether tool is selected.
func (m *Matcher) Match(tool string) bool {
	if m.all {
		return true
	}
	for _, g := range m.globs {
		if g.Match(tool) {
			return true
		}
	}
	return false
}

type matcherCache struct {
	mu       sync.Mutex
	matchers map[string]*Matcher
}

func (c *matcherCache) get(pattern string) (*Matcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.matchers[pattern]; ok {
		return m, nil
	}
	m, err := CompileMatcher(pattern)
	if err != nil {
		return nil, err
	}
	if c.matchers == nil {
		c.matchers = make(map[string]*Matcher)
	}
	c.matchers[pattern] = m
	return m, nil
}
