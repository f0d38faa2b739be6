package query

import (
	"testing"

	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.SearchShowQuerySuggestions, true)
}

func TestQuery(t *testing.T) {
	Convey("Given remembered queries", t, func() {
		So(Remember("daft punk", WeightSearch), ShouldBeNil)
		So(Remember("Daft Punk - Around the World", WeightPlay), ShouldBeNil)
		So(Remember("  ", WeightPlay), ShouldBeNil)

		Convey("Suggestions are ordered by rank", func() {
			s := SuggestMany("daft")
			So(len(s), ShouldBeGreaterThanOrEqualTo, 2)
			So(s[0], ShouldEqual, "daft punk - around the world")
		})

		Convey("Remembering again invalidates cached suggestions", func() {
			_ = SuggestMany("punk")
			So(Remember("daft punk", 10), ShouldBeNil)
			So(Suggest("punk").MustGet(), ShouldEqual, "daft punk")
		})

		Convey("Nothing is suggested when suggestions are disabled", func() {
			viper.Set(key.SearchShowQuerySuggestions, false)
			defer viper.Set(key.SearchShowQuerySuggestions, true)
			So(Suggest("daft").IsPresent(), ShouldBeFalse)
		})

		Convey("Input is sanitized", func() {
			So(sanitize("  LOFI Beats "), ShouldEqual, "lofi beats")
		})
	})
}
