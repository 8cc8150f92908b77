package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name  string        `yaml:"name" toml:"name"`
	Port  int           `yaml:"port" toml:"port"`
	Delay time.Duration `yaml:"delay" toml:"delay"`
	fail  bool
}

func (s *sample) Validate() error {
	if s.fail || s.Port < 0 {
		return errors.New("bad port")
	}
	return nil
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("ANOTA_TEST_NAME", "notes")
	p := writeConfig(t, "c.yaml", "name: ${ANOTA_TEST_NAME}\nport: 9000\ndelay: 2s\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "notes" || s.Port != 9000 || s.Delay != 2*time.Second {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("ANOTA_TEST_NAME", "notes")
	p := writeConfig(t, "c.toml", "name = \"${ANOTA_TEST_NAME}\"\nport = 9001\ndelay = \"1500ms\"\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "notes" || s.Port != 9001 || s.Delay != 1500*time.Millisecond {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"bad yaml", "c.yaml", "port: [", "failed to parse"},
		{"bad toml", "c.toml", "port = ", "failed to parse"},
		{"validation", "c.yaml", "port: -1\n", "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sample
			err := Load(writeConfig(t, tt.file, tt.body), &s)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	var s sample
	if err := Load(filepath.Join(t.TempDir(), "none.yaml"), &s); err == nil {
		t.Error("expected read error")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeConfig(t, "default.yaml", "name: fallback\n")

	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q", s.Name)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err == nil {
		t.Error("expected not found error")
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "kept"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.toml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "kept" {
		t.Errorf("name = %q", s.Name)
	}

	s.fail = true
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.toml"), &s); err == nil {
		t.Error("expected validation error on defaults")
	}
}
