// Package report renders the side-channel output of an optimizer run: a
// human-readable opt-result.txt, a machine-readable opt-result.json and one
// unified diff per renamed key pool. Every file is written atomically.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	TextFileName = "opt-result.txt"
	JSONFileName = "opt-result.json"
	// DefaultDirName is the report directory created next to the archive
	// when none is configured.
	DefaultDirName = "resopt-report"
)

// Removed is one deleted duplicate.
type Removed struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Indices []int  `json:"indices"`
	Backup  string `json:"backup,omitempty"`
}

// Group is one collapsed set of identical files.
type Group struct {
	Retained string    `json:"retained"`
	Digest   string    `json:"digest"`
	Removed  []Removed `json:"removed"`
	Bytes    int64     `json:"bytes"`
}

// Whitelisted is a key the rename pass left alone.
type Whitelisted struct {
	Package string `json:"package"`
	Key     string `json:"key"`
	Pattern string `json:"pattern"`
}

// Package summarizes the rename pass over one package's key pool.
type Package struct {
	Name    string `json:"name"`
	ID      uint32 `json:"id"`
	Keys    int    `json:"keys"`
	Renamed int    `json:"renamed"`
	Diff    string `json:"diff,omitempty"`
}

// Summary is everything one run reports.
type Summary struct {
	Archive      string        `json:"archive"`
	Variant      string        `json:"variant,omitempty"`
	State        string        `json:"state"`
	Changed      bool          `json:"changed"`
	Started      time.Time     `json:"started"`
	Groups       []Group       `json:"groups"`
	Whitelisted  []Whitelisted `json:"whitelisted"`
	Packages     []Package     `json:"packages"`
	RedirectRefs int           `json:"redirectedRefs"`
	BytesRemoved int64         `json:"bytesRemoved"`
	ElapsedMs    int64         `json:"elapsedMs"`
	Error        string        `json:"error,omitempty"`
}

// Lines renders the summary as the report's text lines, in the order they
// are written to opt-result.txt and mirrored to the log.
func (s *Summary) Lines() []string {
	var out []string
	for _, g := range s.Groups {
		out = append(out, fmt.Sprintf("res retained: %s saved: %d", g.Retained, g.Bytes))
		for _, r := range g.Removed {
			out = append(out, fmt.Sprintf("  removed: %s size: %d", r.Path, r.Size))
		}
	}
	for _, w := range s.Whitelisted {
		out = append(out, fmt.Sprintf("key %s (%s) kept by whitelist %s", w.Key, w.Package, w.Pattern))
	}
	for _, p := range s.Packages {
		out = append(out, fmt.Sprintf("package %s: renamed %d of %d keys", p.Name, p.Renamed, p.Keys))
	}
	if s.Error != "" {
		out = append(out, "failed: "+s.Error)
	}
	out = append(out,
		fmt.Sprintf("total removed: %d bytes (%d KB)", s.BytesRemoved, s.BytesRemoved/1024),
		fmt.Sprintf("elapsed: %d ms", s.ElapsedMs),
	)
	return out
}

// DefaultVariant names the variant directory of runs with no known variant.
const DefaultVariant = "default"

// Dir returns the report directory for one invocation, kept per variant and
// per run start time.
func Dir(base, variant string, started time.Time) string {
	if variant == "" {
		variant = DefaultVariant
	}
	return filepath.Join(base, variant, started.UTC().Format("20060102T150405Z"))
}

// WriteText writes opt-result.txt into dir.
func WriteText(dir string, s *Summary) (string, error) {
	return writeAtomic(dir, TextFileName, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(s.Lines(), "\n")+"\n")
		return err
	})
}

// WriteJSON writes opt-result.json into dir. Nil slices are emitted as [].
func WriteJSON(dir string, s *Summary) (string, error) {
	cp := *s
	if cp.Groups == nil {
		cp.Groups = []Group{}
	}
	if cp.Whitelisted == nil {
		cp.Whitelisted = []Whitelisted{}
	}
	if cp.Packages == nil {
		cp.Packages = []Package{}
	}
	return writeAtomic(dir, JSONFileName, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&cp)
	})
}

// WriteDiff writes a patch body into dir/name. An empty body writes nothing.
func WriteDiff(dir, name, body string) (string, error) {
	if body == "" {
		return "", nil
	}
	return writeAtomic(dir, name, func(w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

// writeAtomic writes into a temporary file within dir, then renames it to
// name so readers never observe a partially-written file.
func writeAtomic(dir, name string, fill func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".tmp-"+name+"-")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return final, nil
}
