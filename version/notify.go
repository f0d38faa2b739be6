package version

import (
	"context"
	"fmt"
	"time"

	"github.com/melodeck/melodeck/color"
	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/icon"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/style"
	"github.com/melodeck/melodeck/util"
	"github.com/spf13/viper"
)

const checkTimeout = 3 * time.Second

// Notify prints a notice when a newer release is available.
func Notify(ctx context.Context) {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	latest, err := Latest(ctx)
	erase()
	if err != nil {
		return
	}

	if comp, err := Compare(latest, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/melodeck/melodeck/releases/tag/v"+latest),
	)
}
