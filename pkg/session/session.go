// Package session tracks the skills active during one interaction: their
// loaded bodies, the context appended while they run, the hooks they bind
// and the tools they pre-authorize. Sessions live in memory only.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
)

// Entry is one piece of context appended to the session.
type Entry struct {
	Source string    `json:"source"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Actions reported to a Recorder.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
)

// Activation is reported to a Recorder when a skill is activated or
// deactivated.
type Activation struct {
	SessionID string
	Skill     string
	Action    string
	At        time.Time
}

// Recorder receives activation events.
type Recorder interface {
	RecordActivation(ctx context.Context, a Activation) error
}

type activeSkill struct {
	descriptor  *skills.Descriptor
	body        *skills.Body
	permissions []Permission
}

// Session is safe for concurrent use.
type Session struct {
	id       string
	loader   *skills.Loader
	recorder Recorder

	mu      sync.RWMutex
	order   []string
	active  map[string]*activeSkill
	entries []Entry
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRecorder reports activations to r.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// New starts a session reading skills through loader.
func New(loader *skills.Loader, opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		loader: loader,
		active: make(map[string]*activeSkill),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Activate loads the named skill and makes it active. Activating an active
// skill returns its body without changing the activation order.
func (s *Session) Activate(ctx context.Context, name string) (*skills.Body, error) {
	s.mu.RLock()
	if a, ok := s.active[name]; ok {
		s.mu.RUnlock()
		return a.body, nil
	}
	s.mu.RUnlock()

	descriptor, err := s.loader.Catalog().Lookup(name)
	if err != nil {
		return nil, err
	}
	body, err := s.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	a := &activeSkill{descriptor: descriptor, body: body}
	for _, entry := range descriptor.AllowedTools {
		p, err := ParsePermission(entry)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skill", name).Warn("ignoring allowed-tools entry")
			continue
		}
		a.permissions = append(a.permissions, p)
	}

	s.mu.Lock()
	if existing, ok := s.active[name]; ok {
		s.mu.Unlock()
		return existing.body, nil
	}
	s.active[name] = a
	s.order = append(s.order, name)
	s.mu.Unlock()

	logger.G(ctx).WithField("session", s.id).WithField("skill", name).Debug("skill activated")
	s.record(ctx, name, ActionActivate)
	return body, nil
}

// Deactivate removes the named skill from the session.
func (s *Session) Deactivate(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.active[name]; !ok {
		s.mu.Unlock()
		return errors.Wrapf(skills.ErrNotFound, "skill '%s' is not active", name)
	}
	delete(s.active, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	s.mu.Unlock()

	s.record(ctx, name, ActionDeactivate)
	return nil
}

// Active returns the active skill names in activation order.
func (s *Session) Active() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Body returns the loaded body of an active skill.
func (s *Session) Body(name string) (*skills.Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.active[name]
	if !ok {
		return nil, false
	}
	return a.body, true
}

// ResolveReference reads a direct reference of an active skill.
func (s *Session) ResolveReference(ctx context.Context, name, ref string) (*skills.ReferenceDocument, error) {
	body, ok := s.Body(name)
	if !ok {
		return nil, errors.Wrapf(skills.ErrNotFound, "skill '%s' is not active", name)
	}
	return s.loader.ResolveReference(ctx, body, ref)
}

// AppendContext adds text to the session context.
func (s *Session) AppendContext(source, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Source: source, Text: text, At: time.Now()})
}

// Context returns the appended context in order.
func (s *Session) Context() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Bindings returns the hooks active skills declare for event, in
// activation order and then declaration order.
func (s *Session) Bindings(event skills.HookEvent) []hooks.Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bindings []hooks.Binding
	for _, name := range s.order {
		a := s.active[name]
		for _, b := range a.descriptor.HookBindings(event) {
			bindings = append(bindings, hooks.Binding{
				Skill:       name,
				Directory:   a.descriptor.Directory,
				HookBinding: b,
			})
		}
	}
	return bindings
}

// AllowedTools returns the union of the active skills' allowed-tools
// entries without duplicates.
func (s *Session) AllowedTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tools []string
	seen := map[string]bool{}
	for _, name := range s.order {
		for _, p := range s.active[name].permissions {
			if key := p.String(); !seen[key] {
				seen[key] = true
				tools = append(tools, key)
			}
		}
	}
	return tools
}

// IsToolPreauthorized reports whether any active skill allows the call.
// Permissions of active skills are combined as a union.
func (s *Session) IsToolPreauthorized(tool, argument string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		for _, p := range s.active[name].permissions {
			if p.Allows(tool, argument) {
				return true
			}
		}
	}
	return false
}

func (s *Session) record(ctx context.Context, skill, action string) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.RecordActivation(ctx, Activation{
		SessionID: s.id,
		Skill:     skill,
		Action:    action,
		At:        time.Now(),
	})
	if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to record skill activation")
	}
}

var _ hooks.Session = (*Session)(nil)
