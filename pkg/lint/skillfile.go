package lint

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SkillFile is a SKILL.md read leniently so that broken documents can
// still be reported on.
type SkillFile struct {
	Dir     string
	Path    string
	Content string

	// HasFrontMatter is false when the file does not open with "---".
	HasFrontMatter bool
	// Closed is false when the opening "---" has no closing line.
	Closed         bool
	RawFrontMatter string
	Body           string

	// Fields holds the decoded front matter; Keys lists its keys in order.
	Fields   map[string]any
	Keys     []string
	YAMLErr  error
	NotAMap  bool
	FileName string
}

// LoadSkill reads path, which may be a skill directory or a SKILL.md file.
func LoadSkill(path string) (*SkillFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	dir, file := path, filepath.Join(path, skills.SkillFileName)
	if !info.IsDir() {
		dir, file = filepath.Dir(path), path
	} else if _, err := os.Stat(file); err != nil {
		if alt := findCaseInsensitive(dir, skills.SkillFileName); alt != "" {
			file = alt
		} else {
			return nil, errors.Errorf("no %s in %s", skills.SkillFileName, dir)
		}
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return ParseSkillFile(dir, file, string(content)), nil
}

// ParseSkillFile splits content into front matter and body and decodes the
// front matter with YAML v3.
func ParseSkillFile(dir, path, content string) *SkillFile {
	sf := &SkillFile{
		Dir:      dir,
		Path:     path,
		Content:  content,
		Body:     content,
		FileName: filepath.Base(path),
	}

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r ") != "---" {
		return sf
	}
	sf.HasFrontMatter = true

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r ") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return sf
	}
	sf.Closed = true
	sf.RawFrontMatter = strings.Join(lines[1:end], "\n")
	sf.Body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(sf.RawFrontMatter), &node); err != nil {
		sf.YAMLErr = err
		return sf
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		sf.NotAMap = true
		return sf
	}

	mapping := node.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		sf.Keys = append(sf.Keys, mapping.Content[i].Value)
	}
	if err := mapping.Decode(&sf.Fields); err != nil {
		sf.YAMLErr = err
	}
	return sf
}

// Name returns the front matter name, or the directory name.
func (s *SkillFile) Name() string {
	if name := s.String("name"); name != "" {
		return name
	}
	return filepath.Base(s.Dir)
}

// String returns a front matter field as a string.
func (s *SkillFile) String(key string) string {
	v, ok := s.Fields[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return strings.TrimSpace(str)
	}
	return ""
}

// Has reports whether the front matter declares key.
func (s *SkillFile) Has(key string) bool {
	_, ok := s.Fields[key]
	return ok
}

func findCaseInsensitive(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}
