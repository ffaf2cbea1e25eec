package typemap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMapping(t *testing.T) {
	tm := Default()
	tests := map[string]BSONType{
		"Integer":   BSONNumberLong,
		"IPAddress": BSONString,
	}
	for name, want := range tests {
		if got := tm.Resolve(name); got != want {
			t.Errorf("Resolve(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestUnknownTypeFallsBackToString(t *testing.T) {
	if got := Default().Resolve("Decimal"); got != BSONString {
		t.Errorf("expected String fallback, got %s", got)
	}
}

func TestOverride(t *testing.T) {
	tm := Default()
	if err := tm.Override("IPAddress", BSONBinData); err != nil {
		t.Fatal(err)
	}
	if tm.Resolve("IPAddress") != BSONBinData {
		t.Error("override not applied")
	}
	if !tm.IsOverridden("IPAddress") {
		t.Error("IsOverridden = false")
	}

	if err := tm.Override("IPAddress", BSONString); err != nil {
		t.Fatal(err)
	}
	if tm.IsOverridden("IPAddress") {
		t.Error("restoring the default should clear the override")
	}

	if err := tm.Override("Integer", "Float128"); err == nil {
		t.Error("expected error for unknown BSON type")
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		bson    BSONType
		in      string
		want    any
		wantErr bool
	}{
		{BSONNumberLong, "42", int64(42), false},
		{BSONNumberLong, "-9223372036854775808", int64(-9223372036854775808), false},
		{BSONNumberLong, "x", nil, true},
		{BSONDouble, "1.5", 1.5, false},
		{BSONBoolean, "true", true, false},
		{BSONBoolean, "maybe", nil, true},
		{BSONString, "10.0.0.1", "10.0.0.1", false},
	}
	for _, tt := range tests {
		got, err := Convert(tt.bson, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Convert(%s, %q) error = %v", tt.bson, tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Convert(%s, %q) = %#v, want %#v", tt.bson, tt.in, got, tt.want)
		}
	}
}

func TestConvertAddressToBinData(t *testing.T) {
	got, err := Convert(BSONBinData, "192.168.1.2")
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := got.([]byte); !ok || !bytes.Equal(b, []byte{192, 168, 1, 2}) {
		t.Errorf("Convert = %#v", got)
	}
}

func TestWriteAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "typemap.yaml")
	tm := Default()
	if err := tm.Override("IPAddress", BSONBinData); err != nil {
		t.Fatal(err)
	}
	if err := tm.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if loaded.Resolve("IPAddress") != BSONBinData {
		t.Error("override lost in round trip")
	}
	if loaded.Resolve("Integer") != BSONNumberLong {
		t.Error("default lost in round trip")
	}
}

func TestLoadYAMLRejectsUnknownBSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typemap.yaml")
	if err := os.WriteFile(path, []byte("mappings:\n  Integer: Float128\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadYAML(path); err == nil {
		t.Error("expected error for unknown BSON type")
	}
}

func TestLoadYAMLNotFound(t *testing.T) {
	if _, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSortedTypes(t *testing.T) {
	got := Default().SortedTypes()
	if len(got) != 2 || got[0] != "IPAddress" || got[1] != "Integer" {
		t.Errorf("SortedTypes = %v", got)
	}
}
