package backup

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreRoundTripAllCodecs(t *testing.T) {
	payload := []byte(strings.Repeat("png-bytes ", 500))
	for _, c := range []Codec{None, LZ4, Zstd, XZ} {
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "b.png")
			if err := os.WriteFile(src, payload, 0o644); err != nil {
				t.Fatalf("write source: %v", err)
			}
			s := New(filepath.Join(dir, "backup"), c)
			dst, err := s.Save("res/drawable/b.png", src)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			want := filepath.Join(dir, "backup", "res", "drawable", "b.png") + c.Ext()
			if dst != want {
				t.Fatalf("dst got %q want %q", dst, want)
			}
			rc, err := s.Open(dst)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			got, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("content mismatch: got %d bytes want %d", len(got), len(payload))
			}
		})
	}
}

func TestParseCodec(t *testing.T) {
	cases := map[string]Codec{"": None, "none": None, "LZ4": LZ4, "zst": Zstd, "zstd": Zstd, "xz": XZ}
	for in, want := range cases {
		got, err := ParseCodec(in)
		if err != nil || got != want {
			t.Fatalf("ParseCodec(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCodec("brotli"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestNilStoreDiscards(t *testing.T) {
	var s *Store
	dst, err := s.Save("res/a.png", "/does/not/exist")
	if err != nil || dst != "" {
		t.Fatalf("nil store should be a no-op, got %q, %v", dst, err)
	}
}
