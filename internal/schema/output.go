package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a definition from a YAML file.
func LoadYAML(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a definition.
func ParseYAML(data []byte) (*Definition, error) {
	d := &Definition{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	return d, nil
}

// WriteYAML writes the definition to a YAML file at the given path.
func (d *Definition) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := d.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ToYAML returns the definition as a YAML byte slice.
func (d *Definition) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling definition: %w", err)
	}
	return data, nil
}

// Summary returns a human-readable summary of an apply.
func (r *ApplyResult) Summary() string {
	var b strings.Builder
	if r.SchemaCreated {
		fmt.Fprintf(&b, "Created schema %s\n", r.Schema)
	} else {
		fmt.Fprintf(&b, "Schema %s already exists\n", r.Schema)
	}
	fmt.Fprintf(&b, "%d field(s) added, %d unchanged", len(r.Added), len(r.Unchanged))
	if len(r.Added) > 0 {
		fmt.Fprintf(&b, "\nAdded: %s", strings.Join(r.Added, ", "))
	}
	return b.String()
}
