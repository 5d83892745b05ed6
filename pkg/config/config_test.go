package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

type validated struct {
	Port int `yaml:"port"`
}

func (v *validated) Validate() error {
	if v.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "name: portfolio\nport: 3001\n")
	var got sample
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "portfolio" || got.Port != 3001 {
		t.Errorf("got %+v", got)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("APP_NAME", "from-env")
	path := writeConfig(t, "name: ${APP_NAME}\n")
	var got sample
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "from-env" {
		t.Errorf("name = %q, want from-env", got.Name)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	got := sample{Name: "default", Port: 8080}
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "default" || got.Port != 8080 {
		t.Errorf("defaults clobbered: %+v", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "name: [unclosed\n")
	var got sample
	if err := Load(path, &got); err == nil {
		t.Fatal("want parse error")
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeConfig(t, "port: -1\n")
	var got validated
	if err := Load(path, &got); err == nil {
		t.Fatal("want validation error")
	}

	// A missing file still validates the defaults.
	var zero validated
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &zero); err == nil {
		t.Fatal("want validation error for zero-valued defaults")
	}
}
