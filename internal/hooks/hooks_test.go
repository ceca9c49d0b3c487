package hooks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunMissingHookIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := Run(dir, Pre, nil); err != nil {
		t.Fatalf("expected no error for missing hook, got %v", err)
	}
}

func TestRunEmptyDirIsNoop(t *testing.T) {
	if err := Run("", Pre, nil); err != nil {
		t.Fatalf("expected no error for empty dir, got %v", err)
	}
}

func TestRunNonExecutableHookIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pre")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Run(dir, Pre, nil); err != nil {
		t.Fatalf("expected no error for non-executable hook, got %v", err)
	}
}

func TestRunExecutesHook(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	path := filepath.Join(dir, "post")
	script := "#!/bin/sh\ntouch " + marker + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Run(dir, Post, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected hook to have run: %v", err)
	}
}

func TestRunFailingHookReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pre")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Run(dir, Pre, nil); err == nil {
		t.Fatal("expected error for failing hook")
	}
}
