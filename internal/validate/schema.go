// Package validate checks run inputs before the optimizer touches anything.
// It aggregates every issue it finds into a single error so a bad
// configuration is reported in one pass.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"resopt/internal/backup"
	"resopt/internal/config"
	"resopt/internal/digest"
	"resopt/internal/ziputil"
)

// Config validates a run configuration:
//
//   - The placeholder is non-empty and contains no NUL.
//   - Every whitelist pattern compiles.
//   - Digest and backup codec names are known.
//   - DeflateLevel is within -2..9.
//   - ReportDir, when set, has no '..' segments.
func Config(c config.Config) error {
	var errs errlist

	if c.ResNameOptEnable {
		if c.ResNameOptPlaceholder == "" {
			errs.add("resNameOptPlaceholder must be non-empty")
		}
		if strings.ContainsRune(c.ResNameOptPlaceholder, 0) {
			errs.add("resNameOptPlaceholder must not contain NUL")
		}
	}
	for i, p := range c.ResNameOptWhiteRegexList {
		if _, err := regexp.Compile(p); err != nil {
			errs.add("resNameOptWhiteRegexList[%d] %q: %v", i, p, err)
		}
	}
	if _, err := digest.Parse(c.Digest); err != nil {
		errs.add("digest: %v", err)
	}
	if _, err := backup.ParseCodec(c.BackupCodec); err != nil {
		errs.add("backupCodec: %v", err)
	}
	if c.DeflateLevel < -2 || c.DeflateLevel > 9 {
		errs.add("deflateLevel must be within -2..9 (got %d)", c.DeflateLevel)
	}
	if c.ReportDir != "" && hasDotDot(filepath.ToSlash(c.ReportDir)) {
		errs.add("reportDir must not contain '..' segments (got %q)", c.ReportDir)
	}

	return errs.err()
}

// Manifest validates the entry list captured from an archive:
//
//   - Each name is a normalized relative path (no absolute, no "..", no backslash).
//   - No duplicate names.
//   - Exactly one resources.arsc at the root.
func Manifest(m *ziputil.Manifest) error {
	var errs errlist
	if m == nil {
		errs.add("manifest is nil")
		return errs.err()
	}

	seen := make(map[string]struct{}, len(m.Entries))
	tables := 0
	for i, e := range m.Entries {
		prefix := fmt.Sprintf("entries[%d] (%s)", i, e.Name)
		name := strings.TrimSuffix(e.Name, "/")
		switch {
		case name == "":
			errs.add("%s: name must be non-empty", prefix)
		case strings.HasPrefix(name, "/"):
			errs.add("%s: name must not start with a slash", prefix)
		case strings.Contains(name, `\`):
			errs.add("%s: name must use forward slashes ('/'), found backslash", prefix)
		case hasDotDot(name):
			errs.add("%s: name must not contain '..' segments", prefix)
		}
		if _, dup := seen[e.Name]; dup {
			errs.add("%s: duplicate entry", prefix)
		}
		seen[e.Name] = struct{}{}
		if e.Name == "resources.arsc" {
			tables++
		}
	}
	if tables != 1 {
		errs.add("archive must contain exactly one resources.arsc (found %d)", tables)
	}

	return errs.err()
}

// --- helpers -----------------------------------------------------------------

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	// Join with newline for readability.
	return errors.New(strings.Join(e.msgs, "\n"))
}
