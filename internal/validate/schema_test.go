package validate

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resopt/internal/config"
	"resopt/internal/ziputil"
)

func TestConfigDefaultIsValid(t *testing.T) {
	if err := Config(config.Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfigAggregatesIssues(t *testing.T) {
	c := config.Default()
	c.ResNameOptPlaceholder = ""
	c.ResNameOptWhiteRegexList = []string{"ok_.*", "(bad"}
	c.Digest = "crc64"
	c.BackupCodec = "rar"
	c.DeflateLevel = 12
	c.ReportDir = "out/../../etc"

	err := Config(c)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"resNameOptPlaceholder must be non-empty",
		"resNameOptWhiteRegexList[1]",
		"digest:",
		"backupCodec:",
		"deflateLevel",
		"reportDir",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in:\n%s", want, msg)
		}
	}
	if n := strings.Count(msg, "\n") + 1; n != 6 {
		t.Fatalf("expected 6 issues, got %d:\n%s", n, msg)
	}
}

func TestConfigPlaceholderIgnoredWhenRenameOff(t *testing.T) {
	c := config.Default()
	c.ResNameOptEnable = false
	c.ResNameOptPlaceholder = ""
	if err := Config(c); err != nil {
		t.Fatalf("placeholder should not matter when renaming is off: %v", err)
	}
}

func manifestOf(t *testing.T, names ...string) *ziputil.Manifest {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, "a.ap_")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, n := range names {
		if _, err := zw.Create(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	work := filepath.Join(dir, "work")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}
	m, err := ziputil.Extract(archive, work)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManifest(t *testing.T) {
	if err := Manifest(manifestOf(t, "AndroidManifest.xml", "resources.arsc", "res/a.png")); err != nil {
		t.Fatalf("valid manifest rejected: %v", err)
	}
	err := Manifest(manifestOf(t, "AndroidManifest.xml", "res/a.png"))
	if err == nil || !strings.Contains(err.Error(), "resources.arsc") {
		t.Fatalf("expected missing table error, got %v", err)
	}
	if err := Manifest(nil); err == nil {
		t.Fatalf("nil manifest should be rejected")
	}
}
