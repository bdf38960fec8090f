package session

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Permission is one allowed-tools entry: a tool name, optionally narrowed
// by an argument pattern as in "Bash(gh:*)".
type Permission struct {
	Tool    string
	Pattern string
	raw     string
	glob    glob.Glob
}

// ParsePermission parses "Tool" or "Tool(pattern)". A pattern ending in
// ":*" matches the prefix on its own or followed by a space and anything,
// so "gh:*" allows "gh" and "gh pr list" but not "ghost".
func ParsePermission(entry string) (Permission, error) {
	entry = strings.TrimSpace(entry)
	open := strings.IndexByte(entry, '(')
	if open < 0 {
		if entry == "" {
			return Permission{}, errors.New("empty permission")
		}
		return Permission{Tool: entry, raw: entry}, nil
	}
	if !strings.HasSuffix(entry, ")") || open == 0 {
		return Permission{}, errors.Errorf("malformed permission '%s'", entry)
	}

	p := Permission{
		Tool:    strings.TrimSpace(entry[:open]),
		Pattern: strings.TrimSpace(entry[open+1 : len(entry)-1]),
		raw:     entry,
	}
	if p.Pattern == "" || p.Pattern == "*" {
		return p, nil
	}

	expr := p.Pattern
	if prefix, ok := strings.CutSuffix(p.Pattern, ":*"); ok {
		quoted := glob.QuoteMeta(prefix)
		expr = "{" + quoted + "," + quoted + " *}"
	}
	g, err := glob.Compile(expr)
	if err != nil {
		return Permission{}, errors.Wrapf(err, "malformed permission '%s'", entry)
	}
	p.glob = g
	return p, nil
}

// Allows reports whether the permission covers a call of tool with argument.
func (p Permission) Allows(tool, argument string) bool {
	if p.Tool != tool {
		return false
	}
	if p.glob == nil {
		return true
	}
	return p.glob.Match(strings.TrimSpace(argument))
}

func (p Permission) String() string {
	if p.raw != "" {
		return p.raw
	}
	return p.Tool
}
