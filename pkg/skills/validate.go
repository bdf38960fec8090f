package skills

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Limits applied to front matter fields.
const (
	MaxNameLength                = 64
	MaxDescriptionLength         = 1024
	RecommendedDescriptionLength = 500
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateName checks that name is a kebab-case identifier of at most
// MaxNameLength characters.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is required")
	case len(name) > MaxNameLength:
		return errors.Errorf("name '%s' is %d characters, maximum is %d", name, len(name), MaxNameLength)
	case !namePattern.MatchString(name):
		return errors.Errorf("name '%s' must be lowercase letters, digits and single hyphens", name)
	}
	return nil
}

// ValidateDescription checks that a description is present and within the
// hard length limit.
func ValidateDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return errors.New("description is required")
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLength {
		return errors.Errorf("description is %d characters, maximum is %d", n, MaxDescriptionLength)
	}
	return nil
}
