// Package skills implements the skill catalog: parsing SKILL.md documents,
// registering their descriptors, and loading bodies and references with
// progressive disclosure. Metadata is always available, a body is read when
// a skill is activated, and referenced files are read only on request and
// never followed further.
package skills

import (
	"maps"
	"slices"
	"time"
)

// SkillFileName is the document every skill directory must contain.
const SkillFileName = "SKILL.md"

// HookEvent names a lifecycle event a skill can bind commands to.
type HookEvent string

// Hook events understood in front matter.
const (
	EventPreToolUse       HookEvent = "PreToolUse"
	EventPostToolUse      HookEvent = "PostToolUse"
	EventStop             HookEvent = "Stop"
	EventUserPromptSubmit HookEvent = "UserPromptSubmit"
)

// KnownHookEvents lists the accepted events in declaration order.
var KnownHookEvents = []HookEvent{EventPreToolUse, EventPostToolUse, EventStop, EventUserPromptSubmit}

// HookBinding pairs a tool-name matcher with the command to run.
type HookBinding struct {
	Matcher string
	Command string
	Timeout time.Duration // zero means the dispatcher default
}

// Descriptor is the registered metadata of a skill. Descriptors handed out
// by a Catalog are copies; changing one does not affect the catalog.
type Descriptor struct {
	Name          string
	Description   string
	AllowedTools  []string
	Hooks         map[HookEvent][]HookBinding
	Context       string
	License       string
	Compatibility string
	Metadata      map[string]any

	Directory string // skill directory on disk
	Path      string // full path of SKILL.md
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	c.AllowedTools = slices.Clone(d.AllowedTools)
	c.Metadata = maps.Clone(d.Metadata)
	if d.Hooks != nil {
		c.Hooks = make(map[HookEvent][]HookBinding, len(d.Hooks))
		for event, bindings := range d.Hooks {
			c.Hooks[event] = slices.Clone(bindings)
		}
	}
	return &c
}

// HookBindings returns the bindings declared for event.
func (d *Descriptor) HookBindings(event HookEvent) []HookBinding {
	return d.Hooks[event]
}

// Body is the instructional content of a skill, loaded on activation.
type Body struct {
	Skill     string
	Directory string
	Content   string
	// References are the direct relative links of the body, relative to
	// the skill directory, in document order without duplicates.
	References []string
}

// HasReference reports whether ref is a direct reference of the body.
func (b *Body) HasReference(ref string) bool {
	return slices.Contains(b.References, ref)
}

// ReferenceDocument is a file reached from a Body through one link. Its own
// links are reported as plain text and are never resolved automatically.
type ReferenceDocument struct {
	Skill   string
	Path    string
	Content string
	Links   []string
}
