package filesystem

import (
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestRemoveIfExists(t *testing.T) {
	Convey("Given an in-memory filesystem", t, func() {
		SetMemMapFs()

		Convey("Removing a missing file succeeds", func() {
			So(RemoveIfExists("/tmp/none.sock"), ShouldBeNil)
		})

		Convey("Removing an existing file deletes it", func() {
			lo.Must0(API().WriteFile("/tmp/melodeck.sock", []byte{}, 0o600))
			So(RemoveIfExists("/tmp/melodeck.sock"), ShouldBeNil)
			So(lo.Must(API().Exists("/tmp/melodeck.sock")), ShouldBeFalse)
		})
	})
}
