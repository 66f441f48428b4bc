package optimizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveExt is the extension of a compiled resource package.
const ArchiveExt = ".ap_"

// FindArchive resolves path to a compiled resource package. A file path is
// returned as is; a directory must contain exactly one *.ap_ file.
func FindArchive(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &Error{Kind: MissingInput, Op: "find archive", Err: err}
	}
	if !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", &Error{Kind: MissingInput, Op: "find archive", Err: err}
	}
	var found []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ArchiveExt) {
			found = append(found, filepath.Join(path, e.Name()))
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", &Error{Kind: MissingInput, Op: "find archive", Err: fmt.Errorf("no *%s file in %s", ArchiveExt, path)}
	}
	return "", &Error{Kind: MissingInput, Op: "find archive", Err: fmt.Errorf("%d *%s files in %s; pass one explicitly", len(found), ArchiveExt, path)}
}
