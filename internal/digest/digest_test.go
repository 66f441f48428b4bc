package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheme(t *testing.T) {
	t.Parallel()

	Convey("Scheme", t, func() {
		Convey("parse round trips names", func() {
			for s := range names {
				got, err := Parse(strings.ToUpper(s.String()))
				So(err, ShouldBeNil)
				So(got, ShouldEqual, s)
			}
			_, err := Parse("crc32")
			So(err, ShouldNotBeNil)
		})

		Convey("invalid scheme", func() {
			So(Scheme(0).Valid(), ShouldNotBeNil)
			So(func() { Scheme(99).Hash() }, ShouldPanic)
		})

		Convey("file digest", func() {
			p := filepath.Join(t.TempDir(), "a.png")
			So(os.WriteFile(p, []byte("hello world!"), 0o644), ShouldBeNil)
			got, err := SHA2_256.File(p)
			So(err, ShouldBeNil)
			sum := sha256.Sum256([]byte("hello world!"))
			So(got, ShouldEqual, hex.EncodeToString(sum[:]))

			Convey("schemes disagree on length", func() {
				b2, err := BLAKE2b.File(p)
				So(err, ShouldBeNil)
				So(len(b2), ShouldEqual, 128)
				m, err := MD5.File(p)
				So(err, ShouldBeNil)
				So(len(m), ShouldEqual, 32)
			})
		})

		Convey("missing file", func() {
			_, err := SHA3_256.File(filepath.Join(t.TempDir(), "nope"))
			So(err, ShouldNotBeNil)
		})
	})
}
