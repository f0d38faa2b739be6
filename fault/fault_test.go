package fault

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestError(t *testing.T) {
	Convey("Given a typed error", t, func() {
		err := New(NoActiveSession, "playback.pause", "nothing is playing")

		Convey("It matches its kind through errors.Is", func() {
			So(errors.Is(err, NoActiveSession), ShouldBeTrue)
			So(errors.Is(err, TransportError), ShouldBeFalse)
		})

		Convey("It survives wrapping", func() {
			wrapped := fmt.Errorf("http: %w", err)
			So(errors.Is(wrapped, NoActiveSession), ShouldBeTrue)
			So(KindOf(wrapped), ShouldEqual, NoActiveSession)
			So(Message(wrapped), ShouldEqual, "nothing is playing")
		})

		Convey("The message includes the operation", func() {
			So(err.Error(), ShouldEqual, "playback.pause: nothing is playing")
		})
	})

	Convey("RateLimited is a kind of ResolutionFailure", t, func() {
		err := New(RateLimited, "resolver.search", "HTTP Error 429")
		So(errors.Is(err, ResolutionFailure), ShouldBeTrue)
		So(errors.Is(err, RateLimited), ShouldBeTrue)
	})

	Convey("Wrap keeps the cause", t, func() {
		cause := errors.New("connection refused")
		err := Wrap(TransportError, "ipc.connect", cause)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(KindOf(err), ShouldEqual, TransportError)
		So(err.Error(), ShouldEqual, "ipc.connect: transport error: connection refused")
		So(Wrap(TransportError, "ipc.connect", nil), ShouldBeNil)
	})

	Convey("Untyped errors have an unknown kind", t, func() {
		So(KindOf(errors.New("boom")), ShouldEqual, Unknown)
		So(Message(errors.New("boom")), ShouldEqual, "boom")
	})
}
