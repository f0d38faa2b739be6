// Package icon renders UI symbols in the variant selected by configuration.
package icon

import (
	"github.com/melodeck/melodeck/key"
	"github.com/spf13/viper"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants returns all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Play
	Pause
	Stop
	Note
)

type iconDef struct {
	emoji string
	nerd  string
	plain string
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "", plain: "✓"},
	Fail:     {emoji: "💀", nerd: "", plain: "✗"},
	Progress: {emoji: "⏳", nerd: "", plain: "…"},
	Play:     {emoji: "▶️", nerd: "", plain: "▶"},
	Pause:    {emoji: "⏸️", nerd: "", plain: "‖"},
	Stop:     {emoji: "⏹️", nerd: "", plain: "■"},
	Note:     {emoji: "🎵", nerd: "", plain: "♪"},
}

func (d *iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}

// Get returns the rendered string for an icon in the configured variant.
func Get(i Icon) string {
	d, ok := icons[i]
	if !ok {
		return ""
	}
	return d.get()
}
