package where

import (
	"path/filepath"
	"testing"

	"github.com/KoTeuKa404/pymusic/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Cache()", func() {
			path := Cache()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Logs()", func() {
			path := Logs()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Streams() should live in the cache directory", func() {
			So(filepath.Dir(Streams()), ShouldEqual, Cache())
			So(filepath.Base(Streams()), ShouldEqual, "streams.json")
		})

		Convey("Config() should honor the override variable", func() {
			t.Setenv(EnvConfigPath, "/custom/pymusic")
			So(Config(), ShouldEqual, "/custom/pymusic")
			So(lo.Must(filesystem.API().IsDir("/custom/pymusic")), ShouldBeTrue)
		})
	})
}
