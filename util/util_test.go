package util

import (
	"testing"

	"github.com/melodeck/melodeck/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "track", "tracks"), ShouldEqual, "1 track")
		So(Quantify(0, "track", "tracks"), ShouldEqual, "0 tracks")
		So(Quantify(2, "track", "tracks"), ShouldEqual, "2 tracks")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("history"), ShouldEqual, "History")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestIgnore(t *testing.T) {
	Convey("Ignore should call the function", t, func() {
		called := false
		Ignore(func() error {
			called = true
			return nil
		})
		So(called, ShouldBeTrue)
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		fs := filesystem.API()

		Convey("Should remove a file", func() {
			So(fs.MkdirAll("/tmp/melodeck", 0o755), ShouldBeNil)
			So(fs.WriteFile("/tmp/melodeck/file.json", []byte("{}"), 0o644), ShouldBeNil)
			So(Delete("/tmp/melodeck/file.json"), ShouldBeNil)

			exists, err := fs.Exists("/tmp/melodeck/file.json")
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})

		Convey("Should remove a directory recursively", func() {
			So(fs.MkdirAll("/tmp/melodeck/dir/nested", 0o755), ShouldBeNil)
			So(fs.WriteFile("/tmp/melodeck/dir/nested/a", []byte("a"), 0o644), ShouldBeNil)
			So(Delete("/tmp/melodeck/dir"), ShouldBeNil)

			exists, err := fs.DirExists("/tmp/melodeck/dir")
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})

		Convey("Should fail for a missing path", func() {
			So(Delete("/tmp/melodeck/missing"), ShouldNotBeNil)
		})
	})
}
