package diff

import (
	"strings"
	"testing"
)

func TestStringsShowsChangedIndices(t *testing.T) {
	before := []string{"ic_launcher", "btn_submit", "app_name"}
	after := []string{"opt", "opt", "app_name"}
	body, over := Strings("a/keys", "b/keys", before, after, Options{Context: 1})
	if over {
		t.Fatalf("unexpected oversize")
	}
	for _, want := range []string{
		"--- a/keys", "+++ b/keys",
		"-0\t\"ic_launcher\"", "+0\t\"opt\"",
		"-1\t\"btn_submit\"", "+1\t\"opt\"",
		" 2\t\"app_name\"",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestIdenticalInputsYieldEmptyBody(t *testing.T) {
	body, _ := Strings("a", "b", []string{"x"}, []string{"x"}, Options{})
	if body != "" {
		t.Fatalf("expected empty diff, got:\n%s", body)
	}
	body, _ = Unified("a", "b", []byte("same\n"), []byte("same\n"), Options{})
	if body != "" {
		t.Fatalf("expected empty diff, got:\n%s", body)
	}
}

func TestOversize(t *testing.T) {
	body, over := Strings("a", "b", []string{"0123456789"}, []string{"x"}, Options{MaxBytes: 5})
	if !over || !strings.Contains(body, "diff omitted") {
		t.Fatalf("expected oversize placeholder, got %v:\n%s", over, body)
	}
}

func TestUnified(t *testing.T) {
	body, over := Unified("old.txt", "new.txt", []byte("a\nb\n"), []byte("a\nc\n"), Options{})
	if over || !strings.Contains(body, "-b\n") || !strings.Contains(body, "+c\n") {
		t.Fatalf("unexpected patch:\n%s", body)
	}
}
