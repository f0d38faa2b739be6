package auth

import (
	"errors"
	"testing"

	"github.com/melodeck/melodeck/fault"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"
)

func TestAPIKey(t *testing.T) {
	keyring.MockInit()

	Convey("Given a mocked keyring", t, func() {
		t.Setenv(EnvAPIKey, "")
		So(DeleteAPIKey(), ShouldBeNil)

		Convey("A missing key reports how to set one", func() {
			_, err := APIKey()
			So(errors.Is(err, fault.MissingDependency), ShouldBeTrue)
		})

		Convey("A stored key is returned", func() {
			So(SetAPIKey(" secret "), ShouldBeNil)
			apiKey, err := APIKey()
			So(err, ShouldBeNil)
			So(apiKey, ShouldEqual, "secret")
		})

		Convey("The environment wins over the keyring", func() {
			So(SetAPIKey("stored"), ShouldBeNil)
			t.Setenv(EnvAPIKey, "from-env")
			apiKey, _ := APIKey()
			So(apiKey, ShouldEqual, "from-env")
		})

		Convey("Empty keys are rejected", func() {
			So(errors.Is(SetAPIKey("  "), fault.ValidationError), ShouldBeTrue)
		})
	})
}
