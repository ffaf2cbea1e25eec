// Package typemap decides how field values are represented in MongoDB.
package typemap

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// BSONType represents a MongoDB BSON type.
type BSONType string

const (
	BSONNumberLong BSONType = "NumberLong"
	BSONDouble     BSONType = "Double"
	BSONString     BSONType = "String"
	BSONBinData    BSONType = "BinData"
	BSONBoolean    BSONType = "Boolean"
)

// AllBSONTypes lists the BSON types a value type can be mapped to.
var AllBSONTypes = []BSONType{
	BSONNumberLong,
	BSONDouble,
	BSONString,
	BSONBinData,
	BSONBoolean,
}

// TypeMap holds the mapping from value type names to BSON types.
type TypeMap struct {
	Mappings  map[string]BSONType `yaml:"mappings"`
	Overrides map[string]BSONType `yaml:"overrides,omitempty"`
	defaults  map[string]BSONType
}

// Default returns the mapping for the builtin value types.
func Default() *TypeMap {
	tm := &TypeMap{
		Mappings: map[string]BSONType{
			"Integer":   BSONNumberLong,
			"IPAddress": BSONString,
		},
		Overrides: make(map[string]BSONType),
	}
	tm.defaults = make(map[string]BSONType, len(tm.Mappings))
	for k, v := range tm.Mappings {
		tm.defaults[k] = v
	}
	return tm
}

// Resolve returns the BSON type for the given value type.
func (tm *TypeMap) Resolve(typeName string) BSONType {
	if bsonType, ok := tm.Mappings[typeName]; ok {
		return bsonType
	}
	return BSONString
}

// Override applies a user override for a value type.
func (tm *TypeMap) Override(typeName string, bsonType BSONType) error {
	if !validBSON(bsonType) {
		return fmt.Errorf("unknown BSON type %q", bsonType)
	}
	tm.Mappings[typeName] = bsonType
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]BSONType)
	}
	if def, ok := tm.defaults[typeName]; ok && def == bsonType {
		delete(tm.Overrides, typeName)
		return nil
	}
	tm.Overrides[typeName] = bsonType
	return nil
}

// IsOverridden returns true if the value type has been overridden from its default.
func (tm *TypeMap) IsOverridden(typeName string) bool {
	_, ok := tm.Overrides[typeName]
	return ok
}

// SortedTypes returns the value type names sorted alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	names := make([]string, 0, len(tm.Mappings))
	for k := range tm.Mappings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Convert turns a stored string cell into the Go value the driver encodes
// as bsonType.
func Convert(bsonType BSONType, value string) (any, error) {
	switch bsonType {
	case BSONNumberLong:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("converting %q to %s: %w", value, bsonType, err)
		}
		return n, nil
	case BSONDouble:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("converting %q to %s: %w", value, bsonType, err)
		}
		return f, nil
	case BSONBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("converting %q to %s: %w", value, bsonType, err)
		}
		return b, nil
	case BSONBinData:
		// Addresses are stored in network byte order.
		if addr, err := netip.ParseAddr(value); err == nil {
			return addr.AsSlice(), nil
		}
		return []byte(value), nil
	default:
		return value, nil
	}
}

func validBSON(t BSONType) bool {
	for _, known := range AllBSONTypes {
		if known == t {
			return true
		}
	}
	return false
}

// WriteYAML writes the type mapping to a YAML file.
func (tm *TypeMap) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling type map: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a type mapping file and layers it over the defaults.
func LoadYAML(path string) (*TypeMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type map file: %w", err)
	}
	var file TypeMap
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing type map: %w", err)
	}

	tm := Default()
	for name, bsonType := range file.Mappings {
		if err := tm.Override(name, bsonType); err != nil {
			return nil, fmt.Errorf("type map %s: %w", name, err)
		}
	}
	for name, bsonType := range file.Overrides {
		if err := tm.Override(name, bsonType); err != nil {
			return nil, fmt.Errorf("type map %s: %w", name, err)
		}
	}
	return tm, nil
}
