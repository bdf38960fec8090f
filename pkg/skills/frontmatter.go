package skills

import (
	"net/url"
	"path"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Document is a parsed Markdown file: its front matter (nil when absent),
// the body that follows it and the local links found in the body.
type Document struct {
	Meta  map[string]any
	Body  string
	Links []string
}

type frontMatter struct {
	Name          string                 `mapstructure:"name"`
	Description   string                 `mapstructure:"description"`
	AllowedTools  []string               `mapstructure:"allowed-tools"`
	Hooks         map[string][]hookEntry `mapstructure:"hooks"`
	Context       string                 `mapstructure:"context"`
	License       string                 `mapstructure:"license"`
	Compatibility string                 `mapstructure:"compatibility"`
	Metadata      map[string]any         `mapstructure:"metadata"`
}

// hookEntry accepts both the flat form ({matcher, command, timeout}) and
// the nested form where a matcher groups several commands under "hooks".
type hookEntry struct {
	Matcher string       `mapstructure:"matcher"`
	Command string       `mapstructure:"command"`
	Timeout int          `mapstructure:"timeout"`
	Hooks   []nestedHook `mapstructure:"hooks"`
}

type nestedHook struct {
	Type    string `mapstructure:"type"`
	Command string `mapstructure:"command"`
	Timeout int    `mapstructure:"timeout"`
}

var markdown = goldmark.New(goldmark.WithExtensions(meta.Meta))

// ParseDocument parses Markdown content, extracting YAML front matter when
// the content starts with a "---" block.
func ParseDocument(content []byte) (*Document, error) {
	pctx := parser.NewContext()
	root := markdown.Parser().Parse(text.NewReader(content), parser.WithContext(pctx))

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML front matter")
	}

	return &Document{
		Meta:  metaData,
		Body:  extractBodyContent(string(content)),
		Links: extractLinks(root),
	}, nil
}

// Parse turns a SKILL.md document into a validated Descriptor. Every
// problem in the document is reported in one *ValidationError.
func Parse(content []byte, filePath string) (*Descriptor, error) {
	var problems *multierror.Error

	doc, err := ParseDocument(content)
	if err != nil {
		problems = multierror.Append(problems, err)
		return nil, newValidationError(filePath, problems)
	}
	if len(doc.Meta) == 0 {
		problems = multierror.Append(problems, errors.New("missing front matter block"))
		return nil, newValidationError(filePath, problems)
	}

	var fm frontMatter
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToToolListHook,
		WeaklyTypedInput: true,
		Result:           &fm,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create front matter decoder")
	}
	if err := decoder.Decode(doc.Meta); err != nil {
		problems = multierror.Append(problems, errors.Wrap(err, "invalid front matter field"))
		return nil, newValidationError(filePath, problems)
	}

	if err := ValidateName(fm.Name); err != nil {
		problems = multierror.Append(problems, err)
	}
	if err := ValidateDescription(fm.Description); err != nil {
		problems = multierror.Append(problems, err)
	}

	hooks, err := convertHooks(fm.Hooks)
	if err != nil {
		problems = multierror.Append(problems, err)
	}

	if problems.ErrorOrNil() != nil {
		return nil, newValidationError(filePath, problems)
	}

	return &Descriptor{
		Name:          fm.Name,
		Description:   strings.TrimSpace(fm.Description),
		AllowedTools:  fm.AllowedTools,
		Hooks:         hooks,
		Context:       fm.Context,
		License:       fm.License,
		Compatibility: fm.Compatibility,
		Metadata:      fm.Metadata,
		Path:          filePath,
		Directory:     filepath.Dir(filePath),
	}, nil
}

// stringToToolListHook lets allowed-tools be written as a single string,
// e.g. "Bash(gh:*) Read, Write".
func stringToToolListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
		return data, nil
	}
	return SplitToolList(data.(string)), nil
}

// SplitToolList splits a tool list on commas and on whitespace outside
// parentheses, so "Bash(git log:*) Read" yields two entries.
func SplitToolList(s string) []string {
	var (
		tools []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			tools = append(tools, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case r == ',' && depth == 0, (r == ' ' || r == '\t' || r == '\n') && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return tools
}

func convertHooks(raw map[string][]hookEntry) (map[HookEvent][]HookBinding, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var problems *multierror.Error
	hooks := make(map[HookEvent][]HookBinding, len(raw))
	for name, entries := range raw {
		event, ok := parseHookEvent(name)
		if !ok {
			problems = multierror.Append(problems, errors.Errorf("unknown hook event '%s'", name))
			continue
		}
		for i, entry := range entries {
			if len(entry.Hooks) == 0 {
				if strings.TrimSpace(entry.Command) == "" {
					problems = multierror.Append(problems, errors.Errorf("%s hook #%d has no command", name, i+1))
					continue
				}
				hooks[event] = append(hooks[event], HookBinding{
					Matcher: entry.Matcher,
					Command: entry.Command,
					Timeout: time.Duration(entry.Timeout) * time.Millisecond,
				})
				continue
			}
			for _, nested := range entry.Hooks {
				if nested.Type != "" && nested.Type != "command" {
					problems = multierror.Append(problems, errors.Errorf("%s hook type '%s' is not supported", name, nested.Type))
					continue
				}
				if strings.TrimSpace(nested.Command) == "" {
					problems = multierror.Append(problems, errors.Errorf("%s hook #%d has no command", name, i+1))
					continue
				}
				hooks[event] = append(hooks[event], HookBinding{
					Matcher: entry.Matcher,
					Command: nested.Command,
					Timeout: time.Duration(nested.Timeout) * time.Millisecond,
				})
			}
		}
	}
	return hooks, problems.ErrorOrNil()
}

func parseHookEvent(name string) (HookEvent, bool) {
	for _, event := range KnownHookEvents {
		if string(event) == name {
			return event, true
		}
	}
	return "", false
}

// extractLinks returns the local link destinations of the document,
// cleaned, without fragments and without duplicates.
func extractLinks(root ast.Node) []string {
	var links []string
	seen := make(map[string]bool)

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		if dest, ok := localLink(string(link.Destination)); ok && !seen[dest] {
			seen[dest] = true
			links = append(links, dest)
		}
		return ast.WalkContinue, nil
	})

	return links
}

func localLink(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	p := u.Path
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if p == "" {
		return "", false
	}
	return path.Clean(p), true
}

// extractBodyContent removes YAML front matter and returns the body.
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
