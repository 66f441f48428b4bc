package ziputil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks archive into dir, preserving the directory structure, and
// returns the per-entry metadata needed to rebuild it. dir must exist. On
// failure the partially extracted tree is left for the caller to remove.
func Extract(archive, dir string) (*Manifest, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrExtract, archive, err)
	}
	defer zr.Close()

	m := &Manifest{Comment: zr.Comment}
	for _, f := range zr.File {
		e, err := entryOf(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExtract, err)
		}
		if err := m.add(e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExtract, err)
		}
		if err := extractOne(f, e, dir); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrExtract, e.Name, err)
		}
	}
	return m, nil
}

func entryOf(f *zip.File) (Entry, error) {
	name := f.Name
	dir := strings.HasSuffix(name, "/")
	clean := strings.TrimSuffix(name, "/")
	if clean == "" || SanitizePath(clean) != clean {
		return Entry{}, fmt.Errorf("unsafe entry path %q", name)
	}
	method := Method(f.Method)
	if method != Stored && method != Deflated {
		return Entry{}, fmt.Errorf("entry %q: unsupported compression method %d", name, f.Method)
	}
	e := Entry{
		Name:           name,
		CRC32:          f.CRC32,
		Method:         method,
		Size:           f.UncompressedSize64,
		Dir:            dir,
		Comment:        f.Comment,
		CreatorVersion: f.CreatorVersion,
		ExternalAttrs:  f.ExternalAttrs,
	}
	e.Modified.Time = f.ModifiedTime
	e.Modified.Date = f.ModifiedDate
	return e, nil
}

func extractOne(f *zip.File, e Entry, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(e.Name, "/")))
	if e.Dir {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	// zip.File's reader verifies the CRC at EOF.
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
