// Package types holds the pluggable value types a field can be declared with.
// Every value crosses the storage boundary as a string: Stringify validates a
// user-supplied value and returns its canonical stored form, Destringify
// recovers the value on read.
package types

// ValueType validates and serializes the values of one field type.
// Implementations are immutable once constructed.
type ValueType interface {
	Name() string
	Stringify(v any) (string, error)
	Destringify(s string) (any, error)
}

// Constructor builds a ValueType from a field's option bag.
// A nil or empty option yields the unconstrained variant.
type Constructor func(option map[string]any) (ValueType, error)

// QualifiedPrefix is prepended to a builtin's short name to form the
// fully-qualified name accepted in stored descriptors.
const QualifiedPrefix = "dbapi.types."

// RegisterBuiltins registers Integer and IPAddress under their short names,
// their legacy short names (Int, IP) and the fully-qualified forms of both.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		name   string
		legacy string
		ctor   Constructor
	}{
		{"Integer", "Int", NewInteger},
		{"IPAddress", "IP", NewIPAddress},
	}
	for _, b := range builtins {
		err := r.Register(b.name, b.ctor,
			QualifiedPrefix+b.name, b.legacy, QualifiedPrefix+b.legacy)
		if err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry populated with the builtin types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Builtin names are fixed and distinct.
		panic(err)
	}
	return r
}
