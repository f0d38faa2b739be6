package open

import (
	"testing"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/fault"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpen(t *testing.T) {
	Convey("Start only accepts web pages", t, func() {
		for _, link := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "https://"} {
			err := Start(link)
			So(fault.KindOf(err), ShouldEqual, fault.ValidationError)
		}
	})

	Convey("Each supported OS has a launcher", t, func() {
		for _, goos := range []string{constant.Windows, constant.Darwin, constant.Linux, constant.Android} {
			cmd, ok := command(goos, "https://example.com")
			So(ok, ShouldBeTrue)
			So(cmd.Args[len(cmd.Args)-1], ShouldEqual, "https://example.com")
		}

		_, ok := command("plan9", "https://example.com")
		So(ok, ShouldBeFalse)
	})
}
