package skills

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Loader reads skill bodies and their direct references on demand. Bodies
// are cached after the first successful load.
type Loader struct {
	catalog Catalog

	mu     sync.Mutex
	bodies map[string]*Body
}

// NewLoader returns a loader reading descriptors from catalog.
func NewLoader(catalog Catalog) *Loader {
	return &Loader{
		catalog: catalog,
		bodies:  make(map[string]*Body),
	}
}

// Catalog returns the catalog the loader reads from.
func (l *Loader) Catalog() Catalog {
	return l.catalog
}

// Load returns the body of the named skill. Before a body is returned its
// reference graph is checked; a cycle fails the load with a *CycleError.
func (l *Loader) Load(ctx context.Context, name string) (body *Body, err error) {
	ctx, span := telemetry.StartSpan(ctx, "skills.load", attribute.String("skill.name", name))
	defer func() { telemetry.EndSpan(span, err) }()

	l.mu.Lock()
	cached, ok := l.bodies[name]
	l.mu.Unlock()
	if ok {
		span.SetAttributes(attribute.Bool("skill.cached", true))
		return cached, nil
	}

	descriptor, err := l.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(descriptor.Path)
	if err != nil {
		return nil, errors.Wrapf(ErrBodyUnavailable, "skill '%s': %v", name, err)
	}

	doc, err := ParseDocument(content)
	if err != nil {
		return nil, errors.Wrapf(ErrBodyUnavailable, "skill '%s': %v", name, err)
	}

	root := filepath.Base(descriptor.Path)
	if err := CheckReferenceCycles(descriptor.Name, descriptor.Directory, root, doc.Links); err != nil {
		return nil, err
	}

	body = &Body{
		Skill:      descriptor.Name,
		Directory:  descriptor.Directory,
		Content:    doc.Body,
		References: directReferences(root, doc.Links),
	}

	l.mu.Lock()
	if existing, ok := l.bodies[name]; ok {
		body = existing
	} else {
		l.bodies[name] = body
	}
	l.mu.Unlock()

	logger.G(ctx).WithField("skill", name).WithField("references", len(body.References)).Debug("skill body loaded")
	return body, nil
}

// ResolveReference reads one file referenced directly by body. Paths that
// the body does not link to fail with ErrNotFound; the links inside the
// returned document are not followed.
func (l *Loader) ResolveReference(ctx context.Context, body *Body, ref string) (doc *ReferenceDocument, err error) {
	ctx, span := telemetry.StartSpan(ctx, "skills.resolve_reference",
		attribute.String("skill.name", body.Skill),
		attribute.String("skill.reference", ref),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	cleaned, ok := localLink(ref)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "reference '%s' is not a relative path", ref)
	}
	if escapesRoot(cleaned) {
		return nil, errors.Wrapf(ErrNotFound, "reference '%s' is outside the skill directory", ref)
	}
	if !body.HasReference(cleaned) {
		return nil, errors.Wrapf(ErrNotFound, "'%s' is not referenced by skill '%s'", ref, body.Skill)
	}

	full := filepath.Join(body.Directory, filepath.FromSlash(cleaned))
	if !withinDir(body.Directory, full) {
		return nil, errors.Wrapf(ErrNotFound, "reference '%s' is outside the skill directory", ref)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrapf(ErrBodyUnavailable, "reference '%s' of skill '%s': %v", ref, body.Skill, err)
	}

	doc = &ReferenceDocument{
		Skill:   body.Skill,
		Path:    cleaned,
		Content: string(content),
	}
	if isMarkdown(cleaned) {
		if parsed, err := ParseDocument(content); err == nil {
			doc.Links = parsed.Links
		}
	}

	logger.G(ctx).WithField("skill", body.Skill).WithField("reference", cleaned).Debug("reference resolved")
	return doc, nil
}

// directReferences resolves links of the root document against the skill
// directory and drops the ones that leave it.
func directReferences(root string, links []string) []string {
	refs := make([]string, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		ref := path.Join(path.Dir(root), link)
		if escapesRoot(ref) || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// CheckReferenceCycles walks the Markdown link graph below dir starting at
// root, whose links are rootLinks. Only link lists are read; no content is
// retained.
func CheckReferenceCycles(skill, dir, root string, rootLinks []string) error {
	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}
	var stack []string

	linksOf := func(node string) []string {
		if node == root {
			return rootLinks
		}
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(node)))
		if err != nil {
			return nil
		}
		doc, err := ParseDocument(content)
		if err != nil {
			return nil
		}
		return doc.Links
	}

	var visit func(node string) error
	visit = func(node string) error {
		state[node] = visiting
		stack = append(stack, node)

		for _, link := range linksOf(node) {
			next := path.Join(path.Dir(node), link)
			if escapesRoot(next) || !isMarkdown(next) {
				continue
			}
			switch state[next] {
			case visiting:
				chain := append([]string{}, stack[indexOf(stack, next):]...)
				return &CycleError{Skill: skill, Chain: append(chain, next)}
			case done:
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	return visit(root)
}

func indexOf(items []string, item string) int {
	for i, v := range items {
		if v == item {
			return i
		}
	}
	return 0
}

func escapesRoot(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}

func withinDir(dir, full string) bool {
	rel, err := filepath.Rel(dir, full)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isMarkdown(p string) bool {
	return strings.EqualFold(path.Ext(p), ".md")
}
