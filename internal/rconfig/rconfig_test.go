package rconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsToCWD(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repository != dir {
		t.Errorf("Repository = %q, want %q", cfg.Repository, dir)
	}
	if cfg.LockTimeout.Seconds() != 30 {
		t.Errorf("LockTimeout = %v, want 30s", cfg.LockTimeout)
	}
}

func TestLoadExplicitRootWins(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	cfg, err := Load(dir, other)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repository != other {
		t.Errorf("Repository = %q, want explicit root %q", cfg.Repository, other)
	}
}

func TestLoadFindsUpwardOverride(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".r3rc.yaml"), []byte("repository: "+root+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(sub, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Repository != root {
		t.Errorf("Repository = %q, want %q", cfg.Repository, root)
	}
}

func TestLoadTOMLOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "r3.toml"), []byte("editor = \"nano\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Editor != "nano" {
		t.Errorf("Editor = %q, want nano", cfg.Editor)
	}
}

func TestLoadDebugEnvVar(t *testing.T) {
	t.Setenv("R3_DEBUG", "true")
	dir := t.TempDir()
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected Debug true from R3_DEBUG env var")
	}
}
