// Package backup keeps a copy of every resource file removed from the
// archive so the result of an optimization run can be inspected later.
//
// Copies live under <dir>/<archive path><ext>, where ext depends on the codec.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Codec selects how backed-up files are compressed.
type Codec uint8

const (
	None Codec = iota
	LZ4
	Zstd
	XZ
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case XZ:
		return "xz"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

// Ext is the file name suffix for copies written with c.
func (c Codec) Ext() string {
	switch c {
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case XZ:
		return ".xz"
	}
	return ""
}

// ParseCodec maps a configuration value to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd", "zst":
		return Zstd, nil
	case "xz":
		return XZ, nil
	}
	return None, fmt.Errorf("unknown backup codec %q", s)
}

// Writer wraps w so that data written to it is compressed with c. Closing the
// returned writer flushes the codec but does not close w.
func (c Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return enc, nil
	case XZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create xz writer: %w", err)
		}
		return xw, nil
	}
	return nil, fmt.Errorf("unknown backup codec %d", uint8(c))
}

// Reader returns a reader yielding the decompressed content of r.
func (c Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), nil
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		return io.NopCloser(xr), nil
	}
	return nil, fmt.Errorf("unknown backup codec %d", uint8(c))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Store writes backup copies below a directory.
type Store struct {
	dir   string
	codec Codec
}

// New returns a Store rooted at dir. A nil *Store discards everything.
func New(dir string, codec Codec) *Store {
	return &Store{dir: dir, codec: codec}
}

// Save copies the file at src to the backup location for the archive path
// rel and returns that location.
func (s *Store) Save(rel, src string) (string, error) {
	if s == nil {
		return "", nil
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(rel)) + s.codec.Ext()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	cw, err := s.codec.Writer(out)
	if err != nil {
		_ = out.Close()
		return "", err
	}
	if _, err := io.Copy(cw, in); err != nil {
		_ = cw.Close()
		_ = out.Close()
		return "", fmt.Errorf("backup %s: %w", rel, err)
	}
	if err := cw.Close(); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("backup %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("backup %s: %w", rel, err)
	}
	return dst, nil
}

// Open returns the decompressed content of a copy written by Save.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := s.codec.Reader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return readCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
