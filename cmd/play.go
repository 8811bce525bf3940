package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/config"
	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/icon"
	"github.com/KoTeuKa404/pymusic/internal/remote"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/log"
	"github.com/KoTeuKa404/pymusic/open"
	"github.com/KoTeuKa404/pymusic/player"
	"github.com/KoTeuKa404/pymusic/playlist"
	"github.com/KoTeuKa404/pymusic/publisher"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/KoTeuKa404/pymusic/session"
	"github.com/KoTeuKa404/pymusic/streamcache"
	"github.com/KoTeuKa404/pymusic/style"
	"github.com/KoTeuKa404/pymusic/util"
	"github.com/KoTeuKa404/pymusic/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(playCmd)

	for _, c := range []*cobra.Command{rootCmd, playCmd} {
		c.Flags().IntP("start", "s", 0, "Index of the track to start from")
		c.Flags().BoolP("repeat", "r", false, "Restart the current track when it completes")
		c.Flags().Bool("video", false, "Play video instead of audio only")
		c.Flags().Bool("remote", false, "Serve the HTTP remote control while playing")
	}

	lo.Must0(viper.BindPFlag(key.SessionRepeat, playCmd.Flags().Lookup("repeat")))
	lo.Must0(viper.BindPFlag(key.RemoteEnable, playCmd.Flags().Lookup("remote")))

	// Assigned here rather than in the literal to avoid an
	// initialization cycle: the handler refers to playCmd and rootCmd.
	playCmd.Run = func(cmd *cobra.Command, args []string) {
		// The root command forwards here with its own flag set.
		flags := cmd.Flags()
		if rootCmd.Flags().Parsed() && !playCmd.Flags().Parsed() {
			flags = rootCmd.Flags()
		}

		if flags.Changed("repeat") {
			viper.Set(key.SessionRepeat, lo.Must(flags.GetBool("repeat")))
		}
		if flags.Changed("remote") {
			viper.Set(key.RemoteEnable, lo.Must(flags.GetBool("remote")))
		}
		if lo.Must(flags.GetBool("video")) {
			viper.Set(key.PlayerMode, string(resolver.ModeVideo))
		}

		CheckDependencies()

		tracks := tracksFromArgs(args)
		if len(tracks) == 0 {
			handleErr(errors.New("no references given"))
		}

		handleErr(play(cmd.Context(), tracks, lo.Must(flags.GetInt("start"))))
	}
}

var playCmd = &cobra.Command{
	Use:   "play refs...",
	Short: "Play video references or IDs as a playlist",
	Long: `Play video references or IDs as a playlist.

While playing, these keys are read from the terminal:
  space, p  toggle play/pause
  n         next track
  b         previous track (restarts the track past the first seconds)
  r         toggle repeat
  o         open the current track in the browser
  q         quit`,
	Args: cobra.MinimumNArgs(1),
}

// tracksFromArgs turns command line references into playlist tracks,
// skipping blanks and splitting comma separated lists.
func tracksFromArgs(args []string) []playlist.Track {
	var tracks []playlist.Track
	for _, arg := range args {
		for _, ref := range strings.Split(arg, ",") {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			tracks = append(tracks, playlist.Track{Ref: resolver.NormalizeRef(ref)})
		}
	}
	return tracks
}

func play(ctx context.Context, tracks []playlist.Track, start int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	cache := config.StreamCache(clk)
	if viper.GetBool(key.CachePersist) {
		store := streamcache.NewGacheStore(where.Streams())
		if n, err := cache.Reload(store); err != nil {
			log.Warnf("cache: reload: %v", err)
		} else {
			log.Debugf("cache: restored %d streams", n)
		}
		defer func() {
			if err := cache.Persist(store); err != nil {
				log.Warnf("cache: persist: %v", err)
			}
		}()
	}

	engine := player.NewMPV(viper.GetString(key.PlayerMpvPath), viper.GetString(key.PlayerMode) == string(resolver.ModeVideo))
	if err := engine.Open(ctx); err != nil {
		return err
	}
	defer util.Ignore(engine.Close)

	hub := publisher.NewHub()
	defer hub.Close()

	interactive := util.IsTerminal(os.Stdin) && util.IsTerminal(os.Stdout)
	status := newStatusLine(os.Stdout, viper.GetBool(key.SessionRepeat))

	ctx, quit := context.WithCancel(ctx)
	defer quit()

	opts := config.SessionOptions()
	opts.Clock = clk
	opts.Cache = cache
	opts.Probe = config.Probe()
	opts.Publisher = publisher.NewMulti(publisher.Log{}, hub, lo.Ternary[publisher.Publisher](interactive, status, nil))
	opts.OnFailure = func(err error) {
		log.Error(err)
		if interactive {
			status.clear()
		}
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\r\n", icon.Get(icon.Fail), err)
		quit()
	}

	registry := session.New(engine, config.Resolver(), opts)
	defer registry.Close()

	router := control.NewRouter(registry, clk, config.RouterOptions())
	engine.OnKey(func(name string) {
		router.HandleKey(control.KeyEvent{Name: name, Down: true})
	})

	if viper.GetBool(key.RemoteEnable) {
		go serveRemote(ctx, registry, router, hub)
	}

	registry.PlayPlaylist(tracks, start)

	if interactive {
		restore, err := rawTerminal()
		if err != nil {
			log.Warnf("keyboard: %v", err)
		} else {
			defer restore()
			defer status.clear()

			kb := &keyboard{session: registry, dispatcher: router, status: status, open: open.Start}
			go kb.run(ctx, os.Stdin, quit)
		}
	}

	select {
	case <-ctx.Done():
	case <-engine.Wait():
		log.Info("mpv exited")
	}
	return nil
}

func rawTerminal() (func(), error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = term.Restore(fd, state) }, nil
}

func serveRemote(ctx context.Context, registry *session.Registry, router *control.Router, feed http.Handler) {
	addr := viper.GetString(key.RemoteAddress)
	server := remote.New(registry, router, remote.Options{Feed: feed})

	if err := server.ListenAndServe(ctx, addr); err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s remote: %s\r\n", style.Fg(style.ErrorColor)(icon.Get(icon.Fail)), err)
	}
}
