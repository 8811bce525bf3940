// Package icon renders status symbols for CLI output in the variant the user
// picked: emoji, nerd-font glyphs, plain ASCII, kaomoji or Unicode squares.
package icon

import (
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns every supported variant name.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Playing
	Paused
	Stopped
	Repeat
	Offline
)

var icons = map[Icon]*iconDef{
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "+",
		kaomoji: "(ᵔᴥᵔ)",
		squares: "🟩",
	},
	Fail: {
		emoji:   "❌",
		nerd:    "",
		plain:   "x",
		kaomoji: "(╯°□°)╯",
		squares: "🟥",
	},
	Progress: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "~",
		kaomoji: "(・_・)",
		squares: "🟦",
	},
	Playing: {
		emoji:   "▶️",
		nerd:    "",
		plain:   ">",
		kaomoji: "ヽ(♪)ノ",
		squares: "🟩",
	},
	Paused: {
		emoji:   "⏸️",
		nerd:    "",
		plain:   "||",
		kaomoji: "(－_－)",
		squares: "🟨",
	},
	Stopped: {
		emoji:   "⏹️",
		nerd:    "",
		plain:   "[]",
		kaomoji: "(ー_ー)",
		squares: "⬛",
	},
	Repeat: {
		emoji:   "🔁",
		nerd:    "",
		plain:   "R",
		kaomoji: "(↻)",
		squares: "🟪",
	},
	Offline: {
		emoji:   "📡",
		nerd:    "",
		plain:   "!",
		kaomoji: "(；￣Д￣)",
		squares: "🟧",
	},
}

// Get returns the symbol for i in the configured variant.
func Get(i Icon) string {
	if d, ok := icons[i]; ok {
		return d.Get()
	}
	return ""
}
