package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "amftool.yaml")
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	loadTests := []struct {
		name     string
		contents string
		want     Tool
		wantErr  bool
	}{
		{"empty", "", Default(), false},
		{"partial", "format: yaml\n", Tool{Version: 3, Format: "yaml", Indent: DefaultIndent}, false},
		{"full", "version: 0\nformat: json\nindent: 2\nzlib: true\ndebug: true\n", Tool{Version: 0, Format: "json", Indent: 2, Zlib: true, Debug: true}, false},
		{"badVersion", "version: 2\n", Tool{}, true},
		{"badFormat", "format: xml\n", Tool{}, true},
		{"badIndent", "indent: 99\n", Tool{}, true},
		{"badYAML", "version: [\n", Tool{}, true},
	}

	for _, tt := range loadTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeConfig(t, tt.contents))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got config %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
