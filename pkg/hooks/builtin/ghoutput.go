// Package builtin provides the in-process hooks that skills can reference
// as "builtin:<name>" in their front matter.
package builtin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jingkaihe/skillkit/pkg/hooks"
)

type advice struct {
	pattern    *regexp.Regexp
	suggestion string
}

var ghAdvice = []advice{
	{regexp.MustCompile(`(?i)HTTP 401`), "Authentication required. Run: gh auth login"},
	{regexp.MustCompile(`(?i)HTTP 404`), "Resource not found. Check the repo/path exists and you have access."},
	{regexp.MustCompile(`(?i)HTTP 403`), "Permission denied. You may need additional scopes: gh auth refresh -s repo"},
	{regexp.MustCompile(`(?i)rate limit`), "Rate limited. Authenticate for higher limits: gh auth login"},
	{regexp.MustCompile(`(?i)Could not resolve`), "Repository not found. Verify owner/repo format."},
	{regexp.MustCompile(`(?i)unknown flag`), "Invalid flag. Run: gh <command> --help"},
	{regexp.MustCompile(`(?i)command not found: gh|gh: (command )?not found`), "gh CLI not installed. See https://cli.github.com for install instructions."},
}

// GHOutputAdvisor is a PostToolUse hook that recognises common gh CLI
// failures in tool output and prints a suggested fix. It never blocks.
type GHOutputAdvisor struct{}

// Name returns the hook name
func (GHOutputAdvisor) Name() string {
	return "gh-output-advisor"
}

// Handle inspects the tool output carried by the payload.
func (GHOutputAdvisor) Handle(_ context.Context, payload hooks.Payload) (string, error) {
	if payload.ToolOutput == "" {
		return "", nil
	}
	for _, a := range ghAdvice {
		if a.pattern.MatchString(payload.ToolOutput) {
			return fmt.Sprintf("[%s] Error detected: %s", payload.Skill, a.suggestion), nil
		}
	}
	return "", nil
}

// Registry returns a registry with every built-in hook.
func Registry() *hooks.BuiltinRegistry {
	return hooks.NewBuiltinRegistry(GHOutputAdvisor{})
}
