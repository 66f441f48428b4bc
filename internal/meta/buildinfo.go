// Package meta infers build metadata for a compiled resource package from
// where the Android Gradle plugin placed it: the build variant and the
// project it belongs to.
//
// Goals:
//   - Best-effort parsing: tolerate partial/absent files
//   - Deterministic results for the same path
package meta

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Info contains a minimal summary of build metadata.
type Info struct {
	Variant string // e.g. "debug", "freeRelease"; "" when unknown
	Project string // rootProject.name from settings.gradle(.kts), or the root dir name
	Root    string // directory holding settings.gradle(.kts); "" when not found
}

// Detect inspects archivePath.
//
// Variant, first match wins:
//  1. "resources-<variant>.ap_" file name
//  2. the directory right below "processed_res" in the path
func Detect(archivePath string) Info {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		abs = archivePath
	}
	inf := Info{Variant: variantOf(abs)}
	if root := findRoot(filepath.Dir(abs)); root != "" {
		inf.Root = root
		inf.Project = firstNonEmpty(scanSettingsGradleForRootName(root), filepath.Base(root))
	}
	return inf
}

var reArchiveName = regexp.MustCompile(`^resources-([A-Za-z0-9_]+)\.ap_$`)

func variantOf(abs string) string {
	if m := reArchiveName.FindStringSubmatch(filepath.Base(abs)); m != nil {
		return m[1]
	}
	parts := strings.Split(filepath.ToSlash(abs), "/")
	for i := 0; i+1 < len(parts)-1; i++ {
		if parts[i] == "processed_res" {
			return parts[i+1]
		}
	}
	return ""
}

// findRoot walks up from dir to the nearest directory holding a Gradle
// settings file.
func findRoot(dir string) string {
	for {
		if firstExisting(dir, "settings.gradle", "settings.gradle.kts") != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var reGradleRootName = regexp.MustCompile(`(?m)^\s*rootProject\.name\s*=\s*["']([^"']+)["']`)

func scanSettingsGradleForRootName(root string) string {
	p := firstExisting(root, "settings.gradle", "settings.gradle.kts")
	if p == "" {
		return ""
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	if m := reGradleRootName.FindStringSubmatch(string(b)); m != nil {
		return m[1]
	}
	return ""
}

// ---------------------------- helpers ---------------------------------------

func firstExisting(root string, names ...string) string {
	for _, n := range names {
		p := filepath.Join(root, n)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
