package icon

import (
	"testing"

	"github.com/melodeck/melodeck/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given a registered icon", t, func() {
		Convey("It renders for each variant", func() {
			for _, variant := range AvailableVariants() {
				viper.Set(key.IconsVariant, variant)
				So(Get(Play), ShouldNotBeEmpty)
			}
		})

		Convey("It returns empty for an unknown variant", func() {
			viper.Set(key.IconsVariant, "")
			So(Get(Play), ShouldBeEmpty)
		})

		Convey("It returns empty for an unknown icon", func() {
			viper.Set(key.IconsVariant, plain)
			So(Get(Icon(99)), ShouldBeEmpty)
		})
	})
}
