// Package walkwalk provides a deterministic filesystem walker used to gather
// the resource files of an extracted archive.
package walkwalk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo is a minimal, deterministic descriptor of a collected file.
type FileInfo struct {
	RelPath string // archive path relative to the walk root, forward slashes
	AbsPath string // absolute filesystem path
	Size    int64  // size in bytes
	Ext     string // lowercase extension including dot (e.g., ".png")
}

type walkState struct {
	root  string
	files []FileInfo
}

// CollectFiles walks root/sub and returns every regular file below it,
// sorted by RelPath. RelPath is relative to root, not to sub, so it matches
// the entry name inside the archive. Symlinks are skipped.
func CollectFiles(root, sub string) ([]FileInfo, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	start := filepath.Join(rootAbs, filepath.FromSlash(sub))
	if _, err := os.Stat(start); err != nil {
		return nil, err
	}
	ws := &walkState{root: rootAbs}
	if err := filepath.WalkDir(start, ws.visit); err != nil {
		return nil, err
	}
	sort.Slice(ws.files, func(i, j int) bool { return ws.files[i].RelPath < ws.files[j].RelPath })
	return ws.files, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if isSymlink(d) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if d.IsDir() {
		return nil
	}
	rel, ok := ws.relative(path)
	if !ok {
		return nil
	}
	info, err := d.Info()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	ws.files = append(ws.files, FileInfo{
		RelPath: rel,
		AbsPath: path,
		Size:    info.Size(),
		Ext:     strings.ToLower(filepath.Ext(path)),
	})
	return nil
}

func (ws *walkState) relative(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}
