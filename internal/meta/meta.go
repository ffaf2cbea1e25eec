// Package meta parses field metadata descriptors into typed FieldMeta values.
//
// A descriptor has the wire shape
//
//	{
//	  "type": "Integer" | {"name": "Integer", "option": {"min": 1}},
//	  "nullable": false,
//	  "unique": true,
//	  "default": <any>,
//	  "multi": false,
//	  "reference": {"schema": "pool", "field": "ip", "on_delete": "disable", "on_update": "disable"}
//	}
//
// Descriptors are parsed once where they enter the system; nothing else reads
// the raw map.
package meta

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/types"
)

// OnDelete is the action declared for a referenced field's deletion.
type OnDelete string

const (
	OnDeleteCascade OnDelete = "cascade"
	OnDeleteSetNull OnDelete = "set_null"
	OnDeleteDisable OnDelete = "disable"
)

// OnUpdate is the action declared for a referenced field's update.
type OnUpdate string

const (
	OnUpdateCascade OnUpdate = "cascade"
	OnUpdateDisable OnUpdate = "disable"
)

// Reference declares a dependency on a field of another schema.
type Reference struct {
	Schema   string   `json:"schema" yaml:"schema"`
	Field    string   `json:"field" yaml:"field"`
	OnDelete OnDelete `json:"on_delete" yaml:"on_delete"`
	OnUpdate OnUpdate `json:"on_update" yaml:"on_update"`
}

// FieldMeta is a parsed and validated metadata descriptor.
type FieldMeta struct {
	Type       types.ValueType
	TypeName   string
	Option     map[string]any
	Nullable   bool
	Unique     bool
	Default    any
	HasDefault bool
	Multi      bool
	Reference  *Reference
}

// Parser resolves descriptor types through a Registry.
type Parser struct {
	registry *types.Registry
}

// NewParser returns a Parser backed by reg.
func NewParser(reg *types.Registry) *Parser {
	return &Parser{registry: reg}
}

// ParseJSON decodes a JSON descriptor and parses it. Numbers are kept as
// json.Number so large integers survive.
func (p *Parser) ParseJSON(data []byte) (*FieldMeta, error) {
	desc, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return p.Parse(desc)
}

// DecodeJSON decodes a JSON object descriptor without interpreting it.
func DecodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var desc map[string]any
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMetaParse, err)
	}
	if desc == nil {
		return nil, fmt.Errorf("%w: descriptor must be an object", errs.ErrMetaParse)
	}
	return desc, nil
}

// Parse validates desc and resolves its value type.
func (p *Parser) Parse(desc map[string]any) (*FieldMeta, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: empty descriptor", errs.ErrMetaParse)
	}

	name, option, err := parseType(desc["type"])
	if err != nil {
		return nil, err
	}
	vt, err := p.registry.Instance(name, option)
	if err != nil {
		return nil, err
	}
	canonical, err := p.registry.CanonicalName(name)
	if err != nil {
		return nil, err
	}

	fm := &FieldMeta{
		Type:     vt,
		TypeName: canonical,
		Option:   option,
	}
	if fm.Nullable, err = boolKey(desc, "nullable", false); err != nil {
		return nil, err
	}
	if fm.Unique, err = boolKey(desc, "unique", true); err != nil {
		return nil, err
	}
	if fm.Multi, err = boolKey(desc, "multi", false); err != nil {
		return nil, err
	}
	if d, ok := desc["default"]; ok && d != nil {
		fm.Default = d
		fm.HasDefault = true
	}
	if fm.Reference, err = parseReference(desc["reference"]); err != nil {
		return nil, err
	}
	return fm, nil
}

func parseType(v any) (string, map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return "", nil, fmt.Errorf("%w: type is required", errs.ErrMetaParse)
	case string:
		return t, nil, nil
	case map[string]any:
		name, ok := t["name"].(string)
		if !ok || name == "" {
			return "", nil, fmt.Errorf("%w: type.name must be a non-empty string", errs.ErrMetaParse)
		}
		switch opt := t["option"].(type) {
		case nil:
			return name, nil, nil
		case map[string]any:
			return name, opt, nil
		default:
			return "", nil, fmt.Errorf("%w: type.option must be an object", errs.ErrMetaParse)
		}
	default:
		return "", nil, fmt.Errorf("%w: type must be a string or an object", errs.ErrMetaParse)
	}
}

func parseReference(v any) (*Reference, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: reference must be an object", errs.ErrMetaParse)
	}

	ref := &Reference{OnDelete: OnDeleteDisable, OnUpdate: OnUpdateDisable}
	if ref.Schema, ok = m["schema"].(string); !ok || ref.Schema == "" {
		return nil, fmt.Errorf("%w: reference.schema must be a non-empty string", errs.ErrMetaParse)
	}
	if ref.Field, ok = m["field"].(string); !ok || ref.Field == "" {
		return nil, fmt.Errorf("%w: reference.field must be a non-empty string", errs.ErrMetaParse)
	}

	if raw, present := m["on_delete"]; present && raw != nil {
		s, _ := raw.(string)
		switch OnDelete(s) {
		case OnDeleteCascade, OnDeleteSetNull, OnDeleteDisable:
			ref.OnDelete = OnDelete(s)
		default:
			return nil, fmt.Errorf("%w: reference.on_delete %v is not one of cascade, set_null, disable", errs.ErrMetaParse, raw)
		}
	}
	if raw, present := m["on_update"]; present && raw != nil {
		s, _ := raw.(string)
		switch OnUpdate(s) {
		case OnUpdateCascade, OnUpdateDisable:
			ref.OnUpdate = OnUpdate(s)
		default:
			return nil, fmt.Errorf("%w: reference.on_update %v is not one of cascade, disable", errs.ErrMetaParse, raw)
		}
	}
	return ref, nil
}

func boolKey(desc map[string]any, key string, def bool) (bool, error) {
	v, ok := desc[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean", errs.ErrMetaParse, key)
	}
	return b, nil
}
