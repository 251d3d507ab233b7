package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `cols: 120
rows: 40
ring_bytes: 131072
live_debounce_ms: 20
env:
  LANG: en_US.UTF-8
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Cols != 120 || cfg.Rows != 40 {
		t.Errorf("cols/rows = %d/%d, want 120/40", cfg.Cols, cfg.Rows)
	}
	if cfg.RingBytes != 131072 {
		t.Errorf("ring_bytes = %d, want 131072", cfg.RingBytes)
	}
	if cfg.LiveDebounceMS != 20 {
		t.Errorf("live_debounce_ms = %d, want 20", cfg.LiveDebounceMS)
	}
	if cfg.Env["LANG"] != "en_US.UTF-8" {
		t.Errorf("env.LANG = %q, want en_US.UTF-8", cfg.Env["LANG"])
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Cols != 0 || cfg.Env != nil {
		t.Errorf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFrom_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Cols != 0 {
		t.Errorf("expected zero cols for empty file, got %d", cfg.Cols)
	}
}
