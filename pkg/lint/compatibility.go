package lint

import (
	"fmt"
	"sort"
	"strings"
)

// StandardFields are portable across every skill runtime.
var StandardFields = map[string]string{
	"name":          "Required - skill identifier",
	"description":   "Required - what it does and when to use",
	"license":       "Optional - license name or file reference",
	"compatibility": "Optional - environment requirements",
	"metadata":      "Optional - arbitrary key-value pairs",
}

// ExtensionFields are honoured by skillkit and ignored by runtimes that
// implement only the standard fields.
var ExtensionFields = map[string]string{
	"allowed-tools": "Tool pre-authorization",
	"hooks":         "Event hooks (PreToolUse, PostToolUse, UserPromptSubmit, Stop)",
	"context":       "Execution context (fork for isolated subagent)",
}

// KnownHookTypes lists hook events recognised across runtimes. skillkit
// itself dispatches a subset of them.
var KnownHookTypes = []string{
	"PreToolUse", "PostToolUse", "UserPromptSubmit", "Stop",
	"Notification", "SessionStart", "SubagentStop",
}

// Compatibility separates standard front matter fields from extensions.
type Compatibility struct{}

// Name implements Analyzer.
func (Compatibility) Name() string { return "compatibility" }

// Analyze implements Analyzer.
func (a Compatibility) Analyze(s *SkillFile) []Finding {
	if s.Fields == nil {
		return nil
	}

	var out []Finding
	add := func(sev Severity, msg string) { out = append(out, finding(a.Name(), sev, msg)) }

	var extensions []string
	for _, key := range s.Keys {
		if _, ok := ExtensionFields[key]; ok {
			extensions = append(extensions, key)
		}
	}

	if len(extensions) == 0 {
		add(SeverityGood, "Fully cross-platform (standard fields only)")
	} else {
		for _, key := range extensions {
			add(SeverityInfo, fmt.Sprintf("Extension field %s: %s", key, ExtensionFields[key]))
		}
	}

	if hooks, ok := s.Fields["hooks"].(map[string]any); ok {
		names := make([]string, 0, len(hooks))
		for name := range hooks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !isKnownHookType(name) {
				add(SeverityWarning, "Unknown hook type: "+name)
			}
		}
		if len(names) > 0 {
			add(SeverityInfo, "Hooks: "+strings.Join(names, ", "))
		}
	}

	if len(extensions) > 0 && !s.Has("compatibility") {
		add(SeverityWarning, "Add 'compatibility' field to document platform differences")
	}
	return out
}

func isKnownHookType(name string) bool {
	for _, h := range KnownHookTypes {
		if h == name {
			return true
		}
	}
	return false
}
