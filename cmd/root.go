// Package cmd implements the command-line interface for pymusic.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KoTeuKa404/pymusic/constant"
	"github.com/KoTeuKa404/pymusic/icon"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/KoTeuKa404/pymusic/util"
	"github.com/KoTeuKa404/pymusic/version"
	"github.com/KoTeuKa404/pymusic/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify(cmd.Context())
	})

	// Stale mpv sockets from crashed runs.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd plays its arguments when given any, otherwise it prints help.
var rootCmd = &cobra.Command{
	Use:   constant.App + " [refs...]",
	Short: "Play YouTube audio and video from the terminal",
	Long: style.Title(constant.App) + "\n\n" +
		style.Italic("Play YouTube audio and video from the terminal, with recovery from stalls and expiring links"),
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		if len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		playCmd.Run(playCmd, args)
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
