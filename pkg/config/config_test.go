package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be positive")
	}
	return nil
}

func TestDecodeExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	s := sample{Count: 7}
	if err := Decode(strings.NewReader("name: ${SAMPLE_NAME}\n"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" || s.Count != 7 {
		t.Errorf("got %+v", s)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	var s sample
	err := Decode(strings.NewReader("name: x\ncuont: 3\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "cuont") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestDecodeRunsValidator(t *testing.T) {
	var s sample
	err := Decode(strings.NewReader("count: -1\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	s := sample{Name: "default"}
	if err := Decode(strings.NewReader(""), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("got %+v", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var s sample
	err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
