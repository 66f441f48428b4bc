// Package dedup finds resource files with identical content and collapses
// each group onto one retained file, redirecting the string pool entries
// that named the removed copies.
//
// Detection runs in three phases:
//   - group by the checksum recorded in the archive (cheap pre-filter)
//   - within each multi-member checksum group, regroup by content digest
//   - in each multi-member digest group, keep the first path in
//     lexicographic order and mark the rest for removal
package dedup

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"resopt/internal/arsc"
	"resopt/internal/digest"
	"resopt/internal/walkwalk"
	"resopt/internal/ziputil"
)

// ErrInvariant reports state that an earlier step guaranteed but is missing,
// such as a file with no archive entry or a removed path that the string pool
// never names.
var ErrInvariant = errors.New("dedup invariant violated")

// Index resolves an archive path to its recorded entry metadata.
// *ziputil.Manifest implements it.
type Index interface {
	Lookup(name string) (ziputil.Entry, bool)
}

// Group is one set of content-identical files.
type Group struct {
	Digest   string
	Retained walkwalk.FileInfo
	Removed  []walkwalk.FileInfo
}

// Detect groups files by content. files may be in any order; the result is
// deterministic.
func Detect(files []walkwalk.FileInfo, idx Index, scheme digest.Scheme) ([]Group, error) {
	if err := scheme.Valid(); err != nil {
		return nil, err
	}
	ordered := append([]walkwalk.FileInfo(nil), files...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RelPath < ordered[j].RelPath })

	byCRC, crcOrder, err := groupByChecksum(ordered, idx)
	if err != nil {
		return nil, err
	}

	var groups []Group
	for _, crc := range crcOrder {
		members := byCRC[crc]
		if len(members) < 2 {
			continue
		}
		split, err := groupByDigest(members, scheme)
		if err != nil {
			return nil, err
		}
		groups = append(groups, split...)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Retained.RelPath < groups[j].Retained.RelPath })
	return groups, nil
}

func groupByChecksum(files []walkwalk.FileInfo, idx Index) (map[uint32][]walkwalk.FileInfo, []uint32, error) {
	by := make(map[uint32][]walkwalk.FileInfo)
	var order []uint32
	for _, f := range files {
		e, ok := idx.Lookup(f.RelPath)
		if !ok {
			return nil, nil, fmt.Errorf("%w: no archive entry for %s", ErrInvariant, f.RelPath)
		}
		if _, seen := by[e.CRC32]; !seen {
			order = append(order, e.CRC32)
		}
		by[e.CRC32] = append(by[e.CRC32], f)
	}
	return by, order, nil
}

func groupByDigest(members []walkwalk.FileInfo, scheme digest.Scheme) ([]Group, error) {
	by := make(map[string][]walkwalk.FileInfo)
	var order []string
	for _, f := range members {
		sum, err := scheme.File(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", f.RelPath, err)
		}
		if _, seen := by[sum]; !seen {
			order = append(order, sum)
		}
		by[sum] = append(by[sum], f)
	}
	var out []Group
	for _, sum := range order {
		same := by[sum]
		if len(same) < 2 {
			continue
		}
		out = append(out, Group{Digest: sum, Retained: same[0], Removed: same[1:]})
	}
	return out, nil
}

// Removal records one deleted duplicate.
type Removal struct {
	Path    string
	Size    int64
	Indices []int  // string pool indices redirected to the retained path
	Backup  string // where the file was copied before deletion, if anywhere
}

// Outcome is the result of applying one Group.
type Outcome struct {
	Retained string
	Digest   string
	Removed  []Removal
	Bytes    int64
}

// BackupFunc is called with a removed file's archive path and filesystem
// path before the file is deleted. It returns where the copy was stored.
type BackupFunc func(rel, abs string) (string, error)

// Apply redirects every pool entry naming a removed file to the retained
// path, then deletes the removed files. A removed path the pool does not
// contain is an invariant violation.
func Apply(pool *arsc.StringPool, g Group, backup BackupFunc) (Outcome, error) {
	out := Outcome{Retained: g.Retained.RelPath, Digest: g.Digest}
	for _, f := range g.Removed {
		idx := pool.IndicesOf(f.RelPath)
		if len(idx) == 0 {
			return out, fmt.Errorf("%w: %s is not in the string pool", ErrInvariant, f.RelPath)
		}
		for _, i := range idx {
			if err := pool.Set(i, g.Retained.RelPath); err != nil {
				return out, err
			}
		}
		r := Removal{Path: f.RelPath, Size: f.Size, Indices: idx}
		if backup != nil {
			dst, err := backup(f.RelPath, f.AbsPath)
			if err != nil {
				return out, fmt.Errorf("back up %s: %w", f.RelPath, err)
			}
			r.Backup = dst
		}
		if err := os.Remove(f.AbsPath); err != nil {
			return out, err
		}
		out.Removed = append(out.Removed, r)
		out.Bytes += f.Size
	}
	return out, nil
}

// ApplyAll applies groups in order and returns their outcomes and the total
// number of bytes removed. Outcomes gathered before a failure are returned
// with the error.
func ApplyAll(pool *arsc.StringPool, groups []Group, backup BackupFunc) ([]Outcome, int64, error) {
	var (
		outs  []Outcome
		total int64
	)
	for _, g := range groups {
		o, err := Apply(pool, g, backup)
		total += o.Bytes
		if len(o.Removed) > 0 {
			outs = append(outs, o)
		}
		if err != nil {
			return outs, total, err
		}
	}
	return outs, total, nil
}
