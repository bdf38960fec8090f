package skills

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Error kinds returned by the catalog, parser and loader. Match them with errors.Is.
var (
	ErrDuplicateIdentifier  = errors.New("duplicate skill identifier")
	ErrNotFound             = errors.New("not found")
	ErrMalformedFrontMatter = errors.New("malformed front matter")
	ErrBodyUnavailable      = errors.New("body unavailable")
	ErrReferenceCycle       = errors.New("reference cycle")
)

// ValidationError lists every problem found in one skill document.
type ValidationError struct {
	Path     string
	Problems *multierror.Error
}

func newValidationError(path string, problems *multierror.Error) *ValidationError {
	problems.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return strings.Join(msgs, "; ")
	}
	return &ValidationError{Path: path, Problems: problems}
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return ErrMalformedFrontMatter.Error() + ": " + e.Problems.Error()
	}
	return ErrMalformedFrontMatter.Error() + " in " + e.Path + ": " + e.Problems.Error()
}

// Is makes errors.Is(err, ErrMalformedFrontMatter) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedFrontMatter
}

// CycleError reports a reference chain that loops back on itself.
type CycleError struct {
	Skill string
	Chain []string
}

func (e *CycleError) Error() string {
	return ErrReferenceCycle.Error() + " in skill '" + e.Skill + "': " + strings.Join(e.Chain, " -> ")
}

// Is makes errors.Is(err, ErrReferenceCycle) hold.
func (e *CycleError) Is(target error) bool {
	return target == ErrReferenceCycle
}

func joinProblems(problems []error) error {
	if len(problems) == 0 {
		return nil
	}
	merr := &multierror.Error{Errors: problems}
	merr.ErrorFormat = func(errs []error) string {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return strings.Join(msgs, "\n")
	}
	return merr
}

func unwrapProblems(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	return []error{err}
}
