// Package ziputil extracts a compiled resource package into a working
// directory and rebuilds it afterwards, reproducing each surviving entry's
// original compression method, timestamps and attributes.
package ziputil

import (
	"archive/zip"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors wrapped by Extract and Repack.
var (
	ErrExtract = errors.New("extract archive")
	ErrRepack  = errors.New("repack archive")
)

// Method is a zip compression method this package can reproduce.
type Method uint16

const (
	Stored   = Method(zip.Store)
	Deflated = Method(zip.Deflate)
)

func (m Method) String() string {
	switch m {
	case Stored:
		return "stored"
	case Deflated:
		return "deflated"
	}
	return fmt.Sprintf("Method(%d)", uint16(m))
}

// Entry is the metadata of one archive entry captured at extraction time.
type Entry struct {
	Name     string
	CRC32    uint32
	Method   Method
	Size     uint64
	Dir      bool
	Comment  string
	Modified struct {
		Time uint16
		Date uint16
	}
	CreatorVersion uint16
	ExternalAttrs  uint32
}

// Manifest lists the entries of an archive in their original order.
type Manifest struct {
	Entries []Entry
	Comment string
	byName  map[string]int
}

// Lookup returns the entry for an archive path.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Entry{}, false
	}
	return m.Entries[i], true
}

// Methods maps every file entry to its recorded compression method.
func (m *Manifest) Methods() map[string]Method {
	out := make(map[string]Method, len(m.Entries))
	for _, e := range m.Entries {
		if !e.Dir {
			out[e.Name] = e.Method
		}
	}
	return out
}

func (m *Manifest) add(e Entry) error {
	if m.byName == nil {
		m.byName = make(map[string]int)
	}
	if _, dup := m.byName[e.Name]; dup {
		return fmt.Errorf("duplicate entry %q", e.Name)
	}
	m.byName[e.Name] = len(m.Entries)
	m.Entries = append(m.Entries, e)
	return nil
}

// SanitizePath normalizes ZIP entry paths (forward slashes, no drive, no leading '/'),
// and removes '.' and '..' segments without escaping the root.
func SanitizePath(p string) string {
	s := filepath.ToSlash(p)
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	parts := strings.Split(s, "/")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			continue
		}
		stack = append(stack, part)
	}
	s = strings.Join(stack, "/")
	if s == "" {
		return "entry"
	}
	return s
}
