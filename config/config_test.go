package config

import (
	"testing"
	"time"

	"github.com/KoTeuKa404/pymusic/control"
	"github.com/KoTeuKa404/pymusic/filesystem"
	"github.com/KoTeuKa404/pymusic/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			So(Setup(), ShouldBeNil)
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetInt(key.CacheCapacity), ShouldEqual, 50)
			So(viper.GetStringSlice(key.ResolverClients), ShouldResemble, []string{"android", "web"})
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("session.debounce_ms"), ShouldEqual, "session_debounce_ms")
		})

		Convey("Env should be prefixed with the application name", func() {
			field := Default[key.SessionRetryLimit]
			So(field.Env(), ShouldEqual, "PYMUSIC_SESSION_RETRY_LIMIT")
		})

		Convey("Environment variables should override defaults", func() {
			t.Setenv("PYMUSIC_SESSION_RETRY_LIMIT", "7")
			So(Setup(), ShouldBeNil)
			So(viper.GetInt(key.SessionRetryLimit), ShouldEqual, 7)
		})
	})
}

func TestSessionOptions(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		So(Setup(), ShouldBeNil)

		Convey("Session options should carry the configured values", func() {
			opts := SessionOptions()
			So(opts.DebounceWindow, ShouldEqual, 250*time.Millisecond)
			So(opts.RetryLimit, ShouldEqual, 3)
			So(opts.RetryDelay, ShouldEqual, time.Second)
			So(opts.PreviousThreshold, ShouldEqual, int64(5000))
			So(opts.Repeat, ShouldBeFalse)
			So(string(opts.Mode), ShouldEqual, "audio")
		})

		Convey("Watchdog options should carry the configured values", func() {
			w := WatchdogOptions()
			So(w.Interval, ShouldEqual, 2*time.Second)
			So(w.StallTimeout, ShouldEqual, 10*time.Second)
			So(w.EndGuardMs, ShouldEqual, int64(1500))
		})

		Convey("Router options should carry the per-source windows", func() {
			r := RouterOptions()
			So(r.Windows[control.MediaButton], ShouldEqual, 300*time.Millisecond)
			So(r.Windows[control.Remote], ShouldEqual, 800*time.Millisecond)
			So(r.VolumeSwallow, ShouldEqual, 800*time.Millisecond)
		})

		Convey("The stream cache should start empty", func() {
			So(StreamCache(nil).Len(), ShouldEqual, 0)
		})
	})
}
