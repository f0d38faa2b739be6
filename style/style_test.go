package style

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStatus(t *testing.T) {
	Convey("Status tags keep the status text", t, func() {
		for _, s := range []string{"idle", "resolving", "playing", "paused", "cancelled"} {
			So(Status(s), ShouldContainSubstring, s)
		}
	})
}
