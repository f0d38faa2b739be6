// Package main is the entry point for melodeck.
package main

import (
	"github.com/melodeck/melodeck/cmd"
	"github.com/melodeck/melodeck/config"
	"github.com/melodeck/melodeck/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
