package walkwalk

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCollectFilesSortedAndRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"res/mipmap/z.png", "res/drawable/b.png", "res/drawable/a.png", "resources.arsc", "AndroidManifest.xml"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := CollectFiles(root, "res")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
		if f.Size != int64(len(f.RelPath)) {
			t.Fatalf("%s: size %d", f.RelPath, f.Size)
		}
	}
	want := []string{"res/drawable/a.png", "res/drawable/b.png", "res/mipmap/z.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if files[0].Ext != ".png" {
		t.Fatalf("ext got %q", files[0].Ext)
	}
}

func TestCollectFilesMissingDir(t *testing.T) {
	if _, err := CollectFiles(t.TempDir(), "res"); err == nil {
		t.Fatalf("expected error for missing res dir")
	}
}
