package errs

import "errors"

// Sentinel errors classifying every failure the service reports.
// Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrAlreadyExists           = errors.New("already exists")
	ErrMetaParse               = errors.New("malformed field metadata")
	ErrUnknownType             = errors.New("unknown value type")
	ErrValidation              = errors.New("validation failed")
	ErrBrokenReference         = errors.New("broken reference")
	ErrUnsatisfiableConstraint = errors.New("unsatisfiable constraint")
	ErrMissingDefault          = errors.New("missing default value")
	ErrConflictingConstraint   = errors.New("conflicting constraint")
	ErrPersistence             = errors.New("persistence failure")
	ErrInvalidPage             = errors.New("invalid page")
)

var kinds = []struct {
	err  error
	name string
}{
	// Checked in order; a duplicate schema wraps both persistence and already_exists.
	{ErrAlreadyExists, "already_exists"},
	{ErrNotFound, "not_found"},
	{ErrMetaParse, "meta_parse"},
	{ErrUnknownType, "unknown_type"},
	{ErrValidation, "validation"},
	{ErrBrokenReference, "broken_reference"},
	{ErrUnsatisfiableConstraint, "unsatisfiable_constraint"},
	{ErrMissingDefault, "missing_default"},
	{ErrConflictingConstraint, "conflicting_constraint"},
	{ErrInvalidPage, "invalid_page"},
	{ErrPersistence, "persistence"},
}

// Kind returns a short machine-readable name for the class of err,
// or "internal" when err matches none of the sentinels.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
