package track

import (
	"encoding/json"
	"testing"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMeta(t *testing.T) {
	Convey("Given track metadata without a thumbnail", t, func() {
		m := Meta{
			ID:              "abc",
			Title:           "Song",
			Uploader:        "Artist",
			Duration:        "3:25",
			DurationSeconds: mo.Some(205.0),
			WebpageURL:      "https://www.youtube.com/watch?v=abc",
		}

		Convey("It renders as Uploader - Title", func() {
			So(m.String(), ShouldEqual, "Artist - Song")
			m.Uploader = ""
			So(m.String(), ShouldEqual, "Song")
		})

		Convey("Absent optional fields marshal as null", func() {
			raw, err := json.Marshal(m)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"thumbnail":null`)
			So(string(raw), ShouldContainSubstring, `"durationSeconds":205`)
		})

		Convey("Summary keeps the display fields", func() {
			s := m.Summary()
			So(s.ID, ShouldEqual, "abc")
			So(s.Duration, ShouldEqual, "3:25")
		})
	})
}

func TestFormatSeconds(t *testing.T) {
	Convey("FormatSeconds", t, func() {
		So(FormatSeconds(0), ShouldEqual, "0:00")
		So(FormatSeconds(205.7), ShouldEqual, "3:25")
		So(FormatSeconds(3723), ShouldEqual, "1:02:03")
		So(FormatSeconds(-4), ShouldEqual, "0:00")
	})
}
