package cmd

import (
	"bytes"
	"testing"

	"github.com/melodeck/melodeck/config"
	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/track"
	"github.com/melodeck/melodeck/where"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/cobra"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestParseValue(t *testing.T) {
	Convey("parseValue converts to the type of the default", t, func() {
		Convey("Integers", func() {
			v, err := parseValue(config.Default[key.IPCTimeoutMs], []string{"1200"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1200)

			_, err = parseValue(config.Default[key.IPCTimeoutMs], []string{"soon"})
			So(fault.KindOf(err), ShouldEqual, fault.ValidationError)
		})

		Convey("Booleans", func() {
			v, err := parseValue(config.Default[key.HistorySaveOnPlay], []string{"false"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("Strings", func() {
			v, err := parseValue(config.Default[key.ServerAddr], []string{":8080"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, ":8080")
		})

		Convey("Lists accept several values and comma separated values", func() {
			v, err := parseValue(config.Default[key.PlayerCandidates], []string{"/opt/mpv, mpv", "mpv.exe"})
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []string{"/opt/mpv", "mpv", "mpv.exe"})
		})
	})
}

func TestEnvNames(t *testing.T) {
	Convey("envNames lists prefixed variables and the config path override", t, func() {
		names := envNames()
		So(names, ShouldContain, "MELODECK_PLAYER_SOCKET")
		So(names, ShouldContain, where.EnvConfigPath)
	})
}

func TestOutput(t *testing.T) {
	Convey("Given a command writing to a buffer", t, func() {
		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)

		Convey("Summaries are numbered", func() {
			printSummaries(cmd, []track.Summary{
				{ID: "a", Title: "First", Uploader: "Someone", Duration: "3:00"},
				{ID: "b", Title: "Second"},
			})
			So(out.String(), ShouldContainSubstring, "First")
			So(out.String(), ShouldContainSubstring, "Someone")
			So(out.String(), ShouldContainSubstring, "2.")
		})

		Convey("No summaries print a placeholder", func() {
			printSummaries(cmd, nil)
			So(out.String(), ShouldContainSubstring, "No results")
		})

		Convey("JSON output is indented", func() {
			addJSONFlag(cmd)
			printJSON(cmd, map[string]int{"volume": 40})
			So(out.String(), ShouldEqual, "{\n  \"volume\": 40\n}\n")
			So(wantsJSON(cmd), ShouldBeFalse)
		})
	})
}
