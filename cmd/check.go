package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/icon"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dependency is an external program pymusic drives.
type dependency struct {
	name    string
	binary  func() string
	install map[string]string
}

var dependencies = []dependency{
	{
		name:   "mpv",
		binary: func() string { return viper.GetString(key.PlayerMpvPath) },
		install: map[string]string{
			constant.Darwin:  "brew install mpv",
			constant.Linux:   "sudo apt install mpv",
			constant.Windows: "scoop install mpv",
		},
	},
	{
		name:   "yt-dlp",
		binary: func() string { return viper.GetString(key.ResolverBinary) },
		install: map[string]string{
			constant.Darwin:  "brew install yt-dlp",
			constant.Linux:   "python3 -m pip install -U yt-dlp",
			constant.Windows: "scoop install yt-dlp",
		},
	},
}

func (d dependency) path() (string, bool) {
	binary := d.binary()
	if binary == "" {
		binary = d.name
	}
	path, err := exec.LookPath(binary)
	return path, err == nil
}

func missingDependencies() []dependency {
	return lo.Filter(dependencies, func(d dependency, _ int) bool {
		_, ok := d.path()
		return !ok
	})
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that mpv and yt-dlp are available",
	Run: func(cmd *cobra.Command, args []string) {
		lines := lo.Map(dependencies, func(d dependency, _ int) string {
			if path, ok := d.path(); ok {
				return fmt.Sprintf("%s %s %s", style.Fg(style.SuccessColor)(icon.Get(icon.Success)), style.Bold(d.name), style.Faint(path))
			}
			return fmt.Sprintf("%s %s %s", style.Fg(style.ErrorColor)(icon.Get(icon.Fail)), style.Bold(d.name), style.Faint("not found"))
		})
		fmt.Println(style.Box(strings.Join(lines, "\n")))

		if missing := missingDependencies(); len(missing) > 0 {
			printMissingDependencies(missing)
			os.Exit(1)
		}
	},
}

// CheckDependencies exits with an install hint when a required program is missing.
func CheckDependencies() {
	if missing := missingDependencies(); len(missing) > 0 {
		printMissingDependencies(missing)
		os.Exit(1)
	}
}

func printMissingDependencies(missing []dependency) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.ErrorColor).
		Padding(1, 2).
		Margin(1, 0)

	names := lo.Map(missing, func(d dependency, _ int) string { return d.name })
	title := style.New().Bold(true).Foreground(style.ErrorColor).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("Not found in your PATH: %s.", strings.Join(names, ", ")))

	var hints []string
	for _, d := range missing {
		if installCmd, ok := d.install[runtime.GOOS]; ok {
			hints = append(hints, "  "+style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
		}
	}

	suggestion := ""
	if len(hints) > 0 {
		suggestion = "\n\nTo install, try running:\n" + strings.Join(hints, "\n")
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
