package config

import (
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/key"
	"github.com/KoTeuKa404/pymusic/netprobe"
	"github.com/KoTeuKa404/pymusic/recovery"
	"github.com/KoTeuKa404/pymusic/resolver"
	"github.com/KoTeuKa404/pymusic/session"
	"github.com/KoTeuKa404/pymusic/streamcache"
	"github.com/spf13/viper"
)

func millis(k string) time.Duration {
	return time.Duration(viper.GetInt64(k)) * time.Millisecond
}

func seconds(k string) time.Duration {
	return time.Duration(viper.GetInt64(k)) * time.Second
}

// SessionOptions builds the registry configuration from the current settings.
// Collaborators (clock, cache, probe, publisher) are left for the caller to fill in.
func SessionOptions() session.Options {
	return session.Options{
		DebounceWindow:    millis(key.SessionDebounceMs),
		RetryLimit:        viper.GetInt(key.SessionRetryLimit),
		RetryDelay:        millis(key.SessionRetryDelayMs),
		PreviousThreshold: viper.GetInt64(key.SessionPreviousThresholdMs),
		Repeat:            viper.GetBool(key.SessionRepeat),
		Mode:              resolver.ParseMode(viper.GetString(key.PlayerMode)),
		ResolveTimeout:    seconds(key.ResolverTimeoutS),
		RefreshLead:       seconds(key.RefreshLeadS),
		RefreshMinDelay:   seconds(key.RefreshMinDelayS),
		Watchdog:          WatchdogOptions(),
	}
}

// WatchdogOptions returns the configured watchdog timings.
func WatchdogOptions() recovery.WatchdogOptions {
	return recovery.WatchdogOptions{
		Interval:     millis(key.WatchdogIntervalMs),
		StallTimeout: seconds(key.WatchdogStallTimeoutS),
		EndGuardMs:   viper.GetInt64(key.WatchdogEndGuardMs),
	}
}

// RouterOptions returns the configured per-source debounce windows.
func RouterOptions() control.RouterOptions {
	return control.RouterOptions{
		Windows: map[control.Source]time.Duration{
			control.MediaButton:  millis(key.ControlMediaButtonDebounceMs),
			control.Notification: millis(key.ControlNotificationDebounceMs),
			control.Remote:       millis(key.ControlRemoteDebounceMs),
		},
		VolumeSwallow: millis(key.ControlVolumeSwallowMs),
	}
}

// StreamCache creates the resolved stream cache with the configured bounds.
func StreamCache(clk clock.Clock) *streamcache.Cache {
	return streamcache.New(
		viper.GetInt(key.CacheCapacity),
		seconds(key.CacheSafetyMarginS),
		clk,
	)
}

// Probe creates the configured connectivity probe.
func Probe() netprobe.Probe {
	return netprobe.NewTCP(
		viper.GetString(key.NetworkProbeAddress),
		millis(key.NetworkProbeTimeoutMs),
	)
}

// Resolver creates the configured yt-dlp resolver.
func Resolver() *resolver.YtDlp {
	return resolver.NewYtDlp(
		viper.GetString(key.ResolverBinary),
		viper.GetStringSlice(key.ResolverClients),
		resolver.ParseMode(viper.GetString(key.PlayerMode)),
		seconds(key.ResolverTimeoutS),
	)
}
