package ziputil

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"resopt/internal/walkwalk"
)

// FixedZipTime is stamped on entries that did not exist in the source archive
// (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// Options controls how Repack writes deflated entries.
type Options struct {
	// DeflateLevel is passed to the deflate compressor; -1 selects the default.
	DeflateLevel int
}

// Stats counts what Repack wrote.
type Stats struct {
	Written int // entries copied from the manifest
	Dropped int // manifest entries whose file no longer exists
	Added   int // files found in root that the manifest did not list
}

// Repack rebuilds archivePath from the tree under root. Entries are written in
// manifest order with their recorded compression method, timestamps and
// attributes; entries whose file was deleted are dropped. The new archive is
// written to a temporary file next to archivePath and renamed over it only
// after it has been fully written and synced, so a failure leaves the
// original untouched.
func Repack(root string, m *Manifest, archivePath string, opt Options) (Stats, error) {
	var st Stats
	dir, base := filepath.Split(archivePath)
	if dir == "" {
		dir = "."
	}
	orig, err := os.Stat(archivePath)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrRepack, err)
	}
	tmp, f, err := createTempFile(dir, base)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrRepack, err)
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	level := opt.DeflateLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	listed := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		listed[strings.TrimSuffix(e.Name, "/")] = struct{}{}
		ok, err := writeEntry(zw, root, e)
		if err != nil {
			return st, fmt.Errorf("%w: %s: %w", ErrRepack, e.Name, err)
		}
		if ok {
			st.Written++
		} else {
			st.Dropped++
		}
	}

	extra, err := walkwalk.CollectFiles(root, ".")
	if err != nil {
		return st, fmt.Errorf("%w: scan %s: %w", ErrRepack, root, err)
	}
	for _, fi := range extra {
		if _, ok := listed[fi.RelPath]; ok {
			continue
		}
		e := Entry{Name: fi.RelPath, Method: Deflated}
		e.Modified.Date, e.Modified.Time = msDosTime(FixedZipTime)
		e.ExternalAttrs = 0o644 << 16
		if _, err := writeEntry(zw, root, e); err != nil {
			return st, fmt.Errorf("%w: %s: %w", ErrRepack, fi.RelPath, err)
		}
		st.Added++
	}

	if m.Comment != "" {
		if err := zw.SetComment(m.Comment); err != nil {
			return st, fmt.Errorf("%w: %w", ErrRepack, err)
		}
	}
	if err := zw.Close(); err != nil {
		return st, fmt.Errorf("%w: finish: %w", ErrRepack, err)
	}
	// CreateTemp makes 0600 files; the replacement keeps the original's mode.
	if err := f.Chmod(orig.Mode().Perm()); err != nil {
		return st, fmt.Errorf("%w: chmod: %w", ErrRepack, err)
	}
	if err := f.Sync(); err != nil {
		return st, fmt.Errorf("%w: sync: %w", ErrRepack, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		renamed = true
		return st, fmt.Errorf("%w: close: %w", ErrRepack, err)
	}
	if err := os.Rename(tmp, archivePath); err != nil {
		_ = os.Remove(tmp)
		renamed = true
		return st, fmt.Errorf("%w: replace %s: %w", ErrRepack, archivePath, err)
	}
	renamed = true
	return st, nil
}

// writeEntry copies one manifest entry from root into zw. It reports false
// when the entry's file is gone.
func writeEntry(zw *zip.Writer, root string, e Entry) (bool, error) {
	path := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(e.Name, "/")))
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() != e.Dir {
		return false, fmt.Errorf("expected dir=%v on disk", e.Dir)
	}

	// Modified stays zero so the writer keeps the raw DOS fields.
	h := &zip.FileHeader{
		Name:           e.Name,
		Comment:        e.Comment,
		Method:         uint16(e.Method),
		ModifiedTime:   e.Modified.Time,
		ModifiedDate:   e.Modified.Date,
		CreatorVersion: e.CreatorVersion,
		ExternalAttrs:  e.ExternalAttrs,
	}
	if e.Dir {
		h.Method = zip.Store
	}
	w, err := zw.CreateHeader(h)
	if err != nil {
		return false, err
	}
	if e.Dir {
		return true, nil
	}
	src, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return false, err
	}
	return true, nil
}

// createTempFile creates ".tmp-<base>-<rand>" in dir.
func createTempFile(dir, base string) (string, *os.File, error) {
	f, err := os.CreateTemp(dir, ".tmp-"+base+"-")
	if err != nil {
		return "", nil, err
	}
	return f.Name(), f, nil
}

func msDosTime(t time.Time) (date, tm uint16) {
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	tm = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}
