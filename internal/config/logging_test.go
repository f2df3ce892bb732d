package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupLogFileCreatesAndPrunes(t *testing.T) {
	dir := t.TempDir()

	// Pre-existing logs older than anything SetupLogFile will create.
	for _, name := range []string{
		"server-2026-01-01T00-00-00.log",
		"server-2026-01-02T00-00-00.log",
		"server-2026-01-03T00-00-00.log",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("SetupLogFile: %v", err)
	}
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "server-*.log"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("kept %d log files, want 2", len(files))
	}
	// The newly created file is among the survivors.
	found := false
	for _, path := range files {
		if path == f.Name() {
			found = true
		}
	}
	if !found {
		t.Fatalf("new log file %s was pruned, kept %v", f.Name(), files)
	}
}

func TestSetupLogFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := SetupLogFile(dir, 5)
	if err != nil {
		t.Fatalf("SetupLogFile: %v", err)
	}
	f.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log directory missing: %v", err)
	}
}
