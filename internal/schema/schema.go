// Package schema holds the portable YAML form of a logical table.
package schema

import (
	"fmt"
	"strings"
)

// Definition describes a logical table and its fields in declaration order.
type Definition struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldDef `json:"fields" yaml:"fields"`
}

// FieldDef is one field and its metadata descriptor.
type FieldDef struct {
	Name      string         `json:"name" yaml:"name"`
	Meta      map[string]any `json:"meta" yaml:"meta"`
	Reference string         `json:"reference,omitempty" yaml:"reference,omitempty"` // schema.field, informational
}

// Validate checks the definition's structure. Descriptor contents are
// checked when the fields are added.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("definition has no name")
	}
	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("field %d has no name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("field %q declared twice", name)
		}
		seen[name] = true
		if f.Meta == nil {
			return fmt.Errorf("field %q has no meta", name)
		}
	}
	return nil
}

// Plan splits the definition's fields into those missing from existing and
// those already present, preserving declaration order.
func (d *Definition) Plan(existing []string) (add, keep []FieldDef) {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, f := range d.Fields {
		if have[strings.TrimSpace(f.Name)] {
			keep = append(keep, f)
		} else {
			add = append(add, f)
		}
	}
	return add, keep
}

// ApplyResult reports what applying a definition changed.
type ApplyResult struct {
	Schema        string   `json:"schema" yaml:"schema"`
	SchemaCreated bool     `json:"schema_created" yaml:"schema_created"`
	Added         []string `json:"added" yaml:"added"`
	Unchanged     []string `json:"unchanged" yaml:"unchanged"`
}
