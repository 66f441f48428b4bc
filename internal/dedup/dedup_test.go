package dedup

import (
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"resopt/internal/arsc"
	"resopt/internal/digest"
	"resopt/internal/walkwalk"
	"resopt/internal/ziputil"
)

// fakeIndex maps archive paths to recorded checksums.
type fakeIndex map[string]uint32

func (f fakeIndex) Lookup(name string) (ziputil.Entry, bool) {
	c, ok := f[name]
	return ziputil.Entry{Name: name, CRC32: c}, ok
}

func writeTree(t *testing.T, files map[string]string) (string, fakeIndex) {
	t.Helper()
	root := t.TempDir()
	idx := fakeIndex{}
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		idx[rel] = crc32.ChecksumIEEE([]byte(body))
	}
	return root, idx
}

func collect(t *testing.T, root string) []walkwalk.FileInfo {
	t.Helper()
	files, err := walkwalk.CollectFiles(root, "res")
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func scenarioPool() *arsc.StringPool {
	return arsc.NewStringPool(true,
		"zero", "one", "two", "three", "four",
		"res/a.png", "six", "res/b.png", "res/c.png",
	)
}

func TestDuplicateScenario(t *testing.T) {
	Convey("Given two identical files and one distinct file", t, func() {
		root, idx := writeTree(t, map[string]string{
			"res/a.png": "same-bytes",
			"res/b.png": "same-bytes",
			"res/c.png": "other",
		})
		files := collect(t, root)

		groups, err := Detect(files, idx, digest.SHA2_256)
		So(err, ShouldBeNil)
		So(groups, ShouldHaveLength, 1)
		So(groups[0].Retained.RelPath, ShouldEqual, "res/a.png")
		So(groups[0].Removed, ShouldHaveLength, 1)
		So(groups[0].Removed[0].RelPath, ShouldEqual, "res/b.png")

		Convey("applying the group redirects index 7 and deletes b.png", func() {
			pool := scenarioPool()
			var backedUp []string
			outs, total, err := ApplyAll(pool, groups, func(rel, abs string) (string, error) {
				backedUp = append(backedUp, rel)
				return "", nil
			})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, len("same-bytes"))
			So(outs, ShouldHaveLength, 1)
			So(outs[0].Removed[0].Indices, ShouldResemble, []int{7})
			So(backedUp, ShouldResemble, []string{"res/b.png"})

			s, _ := pool.Get(7)
			So(s, ShouldEqual, "res/a.png")
			s, _ = pool.Get(5)
			So(s, ShouldEqual, "res/a.png")
			So(pool.Len(), ShouldEqual, 9)

			_, err = os.Stat(filepath.Join(root, "res", "b.png"))
			So(os.IsNotExist(err), ShouldBeTrue)
			_, err = os.Stat(filepath.Join(root, "res", "a.png"))
			So(err, ShouldBeNil)

			Convey("a second detection finds nothing", func() {
				again, err := Detect(collect(t, root), idx, digest.SHA2_256)
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
			})
		})
	})
}

func TestChecksumCollision(t *testing.T) {
	Convey("Files sharing a checksum but not content are never merged", t, func() {
		root, idx := writeTree(t, map[string]string{
			"res/x.png": "first",
			"res/y.png": "second",
		})
		idx["res/x.png"] = 42
		idx["res/y.png"] = 42

		groups, err := Detect(collect(t, root), idx, digest.BLAKE2b)
		So(err, ShouldBeNil)
		So(groups, ShouldBeEmpty)
	})
}

func TestRetainedIsLexicographicallyFirst(t *testing.T) {
	Convey("Input order does not change the retained file", t, func() {
		root, idx := writeTree(t, map[string]string{
			"res/mipmap/icon.png":   "icon",
			"res/drawable/icon.png": "icon",
			"res/raw/icon.png":      "icon",
		})
		files := collect(t, root)
		reversed := make([]walkwalk.FileInfo, len(files))
		for i, f := range files {
			reversed[len(files)-1-i] = f
		}

		groups, err := Detect(reversed, idx, digest.SHA2_256)
		So(err, ShouldBeNil)
		So(groups, ShouldHaveLength, 1)
		So(groups[0].Retained.RelPath, ShouldEqual, "res/drawable/icon.png")
		So(groups[0].Removed[0].RelPath, ShouldEqual, "res/mipmap/icon.png")
		So(groups[0].Removed[1].RelPath, ShouldEqual, "res/raw/icon.png")
	})
}

func TestInvariantViolations(t *testing.T) {
	Convey("Missing metadata or pool entries are errors", t, func() {
		root, idx := writeTree(t, map[string]string{
			"res/a.png": "dup",
			"res/b.png": "dup",
		})
		files := collect(t, root)

		Convey("a file without an archive entry", func() {
			delete(idx, "res/b.png")
			_, err := Detect(files, idx, digest.SHA2_256)
			So(errors.Is(err, ErrInvariant), ShouldBeTrue)
		})

		Convey("a removed path the pool does not name", func() {
			groups, err := Detect(files, idx, digest.SHA2_256)
			So(err, ShouldBeNil)
			pool := arsc.NewStringPool(true, "res/a.png")
			_, _, err = ApplyAll(pool, groups, nil)
			So(errors.Is(err, ErrInvariant), ShouldBeTrue)
			_, err = os.Stat(filepath.Join(root, "res", "b.png"))
			So(err, ShouldBeNil)
		})

		Convey("an unknown digest scheme", func() {
			_, err := Detect(files, idx, digest.Scheme(0))
			So(err, ShouldNotBeNil)
		})
	})
}
