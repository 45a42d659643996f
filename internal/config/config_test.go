package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindEnvLocal_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=value"), 0644); err != nil {
		t.Fatal(err)
	}

	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	if findEnvLocal() == "" {
		t.Error("expected to find .env.local in current directory")
	}
}

func TestFindEnvLocal_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	childDir := filepath.Join(tmpDir, "child")
	if err := os.Mkdir(childDir, 0755); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=parent"), 0644); err != nil {
		t.Fatal(err)
	}

	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	if result == "" {
		t.Fatal("expected to find .env.local in parent directory")
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(envPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected %s, got %s", expectedResolved, resultResolved)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEMOQ_DB_PATH", "/tmp/custom/memoq.db")
	t.Setenv("MEMOQ_OUTPUT", "json")
	t.Setenv("MEMOQ_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/custom/memoq.db" {
		t.Errorf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.Output != "json" {
		t.Errorf("expected output json, got %q", cfg.Output)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEMOQ_DB_PATH", "")
	t.Setenv("MEMOQ_BACKUP_DIR", "")

	// Run from an empty directory so no project-local database is found.
	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AutosaveSeconds != 7 {
		t.Errorf("expected autosave default 7, got %d", cfg.AutosaveSeconds)
	}
	if filepath.Base(cfg.DBPath) != "memoq.db" {
		t.Errorf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.BackupDir == "" {
		t.Error("expected a default backup directory")
	}
}

func TestGetEnvOrFile(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(secretPath, []byte("from-file"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MEMOQ_TEST_VALUE", "")
	t.Setenv("MEMOQ_TEST_VALUE_FILE", secretPath)
	if got := getEnvOrFile("MEMOQ_TEST_VALUE", "MEMOQ_TEST_VALUE_FILE"); got != "from-file" {
		t.Errorf("expected file value, got %q", got)
	}

	t.Setenv("MEMOQ_TEST_VALUE", "direct")
	if got := getEnvOrFile("MEMOQ_TEST_VALUE", "MEMOQ_TEST_VALUE_FILE"); got != "direct" {
		t.Errorf("expected env value to win, got %q", got)
	}
}
