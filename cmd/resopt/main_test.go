package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"resopt/internal/logging"
)

func TestParseFlagsBasic(t *testing.T) {
	args := []string{"-res-name=false", "-whitelist", "app_.*, ic_.* ,", "-backup", "zstd", "-deflate-level", "9", "-v", "out/resources.ap_"}
	c, err := parseFlags(args)
	if err != nil {
		t.Fatalf("parseFlags error: %v", err)
	}
	if c.target != filepath.Clean("out/resources.ap_") {
		t.Fatalf("target got %q", c.target)
	}
	if c.cfg.ResNameOptEnable || !c.cfg.RepeatResOptEnable {
		t.Fatalf("toggles got %+v", c.cfg)
	}
	if !reflect.DeepEqual(c.cfg.ResNameOptWhiteRegexList, []string{"app_.*", "ic_.*"}) {
		t.Fatalf("whitelist got %v", c.cfg.ResNameOptWhiteRegexList)
	}
	if c.cfg.BackupCodec != "zstd" || c.cfg.DeflateLevel != 9 {
		t.Fatalf("ambient flags got %+v", c.cfg)
	}
	if c.logLevel != logging.Debug {
		t.Fatalf("log level got %v", c.logLevel)
	}
}

func TestParseFlagsMissingTarget(t *testing.T) {
	if _, err := parseFlags([]string{"-repeat-res=false"}); err == nil {
		t.Fatalf("expected error for missing <archive.ap_>")
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resopt.json")
	body := `{"repeatResOptEnable": false, "resNameOptPlaceholder": "z", "resNameOptWhiteRegexList": ["keep"]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := parseFlags([]string{"-config", path, "-placeholder", "x", "a.ap_"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if c.cfg.RepeatResOptEnable {
		t.Fatalf("file value should survive when the flag is not set")
	}
	if c.cfg.ResNameOptPlaceholder != "x" {
		t.Fatalf("explicit flag should win, got %q", c.cfg.ResNameOptPlaceholder)
	}
	if !reflect.DeepEqual(c.cfg.ResNameOptWhiteRegexList, []string{"keep"}) {
		t.Fatalf("whitelist from file got %v", c.cfg.ResNameOptWhiteRegexList)
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Fatalf("empty input got %v", got)
	}
	if got := splitCSV("a,,b , c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
}

func writeArchive(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(n)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	if code := run([]string{}, &stderr); code != 2 {
		t.Fatalf("no args: exit %d", code)
	}
	if code := run([]string{"-digest", "crc", dir}, &stderr); code != 1 {
		// no archive in dir is detected before the config is validated
		t.Fatalf("missing archive: exit %d", code)
	}

	archive := filepath.Join(dir, "resources.ap_")
	writeArchive(t, archive, "AndroidManifest.xml", "resources.arsc")
	if code := run([]string{"-digest", "crc", archive}, &stderr); code != 2 {
		t.Fatalf("bad config: exit %d", code)
	}

	before, _ := os.ReadFile(archive)
	report := filepath.Join(dir, "report")
	if code := run([]string{"-repeat-res=false", "-res-name=false", "-report-dir", report, dir}, &stderr); code != 0 {
		t.Fatalf("no-op run: exit %d\n%s", code, stderr.String())
	}
	after, _ := os.ReadFile(archive)
	if !bytes.Equal(before, after) {
		t.Fatalf("no-op run changed the archive")
	}

	stderr.Reset()
	if code := run([]string{"-report-dir", report, archive}, &stderr); code != 1 {
		t.Fatalf("malformed table: exit %d", code)
	}
	if !strings.Contains(stderr.String(), "[ERROR]") {
		t.Fatalf("expected an error log line, got:\n%s", stderr.String())
	}
}
