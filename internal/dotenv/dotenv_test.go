package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	t.Parallel()
	if err := LoadFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadFile missing file error: %v", err)
	}
}

func TestLoadFile_LoadsValuesAndPreservesExisting(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, ".env")
	content := "" +
		"# comment\n" +
		"FROM_FILE=loaded\n" +
		"QUOTED=\"hello world\"\n" +
		"export EXPORTED=ok\n" +
		"EXISTING=from_file\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("EXISTING", "already_set")

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := os.Getenv("FROM_FILE"); got != "loaded" {
		t.Fatalf("FROM_FILE=%q, want %q", got, "loaded")
	}
	if got := os.Getenv("QUOTED"); got != "hello world" {
		t.Fatalf("QUOTED=%q, want %q", got, "hello world")
	}
	if got := os.Getenv("EXPORTED"); got != "ok" {
		t.Fatalf("EXPORTED=%q, want %q", got, "ok")
	}
	if got := os.Getenv("EXISTING"); got != "already_set" {
		t.Fatalf("EXISTING=%q, want existing value preserved", got)
	}
}

func TestLoadFile_StripsTrailingComments(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"COMMENTED=value # inline note\n" +
		"TABBED=value\t# tab before hash\n" +
		"FRAGMENT=path#fragment\n" +
		"QUOTED_HASH=\"keep # this\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, key := range []string{"COMMENTED", "TABBED", "FRAGMENT", "QUOTED_HASH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadFile(envPath); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := os.Getenv("COMMENTED"); got != "value" {
		t.Fatalf("COMMENTED=%q, want %q", got, "value")
	}
	if got := os.Getenv("TABBED"); got != "value" {
		t.Fatalf("TABBED=%q, want %q", got, "value")
	}
	if got := os.Getenv("FRAGMENT"); got != "path#fragment" {
		t.Fatalf("FRAGMENT=%q, want hash without leading space kept", got)
	}
	if got := os.Getenv("QUOTED_HASH"); got != "keep # this" {
		t.Fatalf("QUOTED_HASH=%q, want quoted hash kept", got)
	}
}
