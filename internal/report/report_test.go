package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleSummary() *Summary {
	return &Summary{
		Archive: "/out/resources.ap_",
		State:   "Finalized",
		Changed: true,
		Groups: []Group{{
			Retained: "res/a.png",
			Digest:   "abc",
			Removed:  []Removed{{Path: "res/b.png", Size: 2048, Indices: []int{7}}},
			Bytes:    2048,
		}},
		Whitelisted:  []Whitelisted{{Package: "com.example", Key: "app_name", Pattern: "app_.*"}},
		Packages:     []Package{{Name: "com.example", ID: 0x7f, Keys: 3, Renamed: 2}},
		BytesRemoved: 2048,
		ElapsedMs:    12,
	}
}

func TestLines(t *testing.T) {
	got := sampleSummary().Lines()
	want := []string{
		"res retained: res/a.png saved: 2048",
		"  removed: res/b.png size: 2048",
		"key app_name (com.example) kept by whitelist app_.*",
		"package com.example: renamed 2 of 3 keys",
		"total removed: 2048 bytes (2 KB)",
		"elapsed: 12 ms",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("lines:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestWriteTextAndJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "report")
	s := sampleSummary()

	txt, err := WriteText(dir, s)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	b, err := os.ReadFile(txt)
	if err != nil || !strings.HasPrefix(string(b), "res retained: res/a.png saved: 2048\n") {
		t.Fatalf("text report: %q, %v", b, err)
	}

	js, err := WriteJSON(dir, &Summary{State: "Idle"})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	b, err = os.ReadFile(js)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("json: %v", err)
	}
	if g, ok := raw["groups"].([]any); !ok || len(g) != 0 {
		t.Fatalf("groups should be an empty array, got %v", raw["groups"])
	}

	for _, p := range []string{txt, js} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.Mode().Perm(); got != 0o644 {
			t.Fatalf("%s mode %04o, want 0644", filepath.Base(p), got)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestWriteDiffSkipsEmpty(t *testing.T) {
	dir := t.TempDir()
	p, err := WriteDiff(dir, "keys.diff", "")
	if err != nil || p != "" {
		t.Fatalf("empty diff should not be written: %q, %v", p, err)
	}
	p, err = WriteDiff(dir, "keys.diff", "--- a\n+++ b\n")
	if err != nil || p != filepath.Join(dir, "keys.diff") {
		t.Fatalf("WriteDiff: %q, %v", p, err)
	}
}

func TestDir(t *testing.T) {
	at := time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)
	if got := Dir("/r", "", at); got != filepath.Join("/r", DefaultVariant, "20240309T080706Z") {
		t.Fatalf("Dir without variant: %q", got)
	}
	if got := Dir("/r", "release", at); got != filepath.Join("/r", "release", "20240309T080706Z") {
		t.Fatalf("Dir with variant: %q", got)
	}
}
