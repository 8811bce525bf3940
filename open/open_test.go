package open

import (
	"path/filepath"
	"testing"

	"github.com/KoTeuKa404/pymusic/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("Given a watch URL", t, func() {
		const url = constant.WatchURL + "dQw4w9WgXcQ"

		Convey("Linux should use xdg-open", func() {
			cmd, ok := command(constant.Linux, url)
			So(ok, ShouldBeTrue)
			So(filepath.Base(cmd.Path), ShouldEqual, "xdg-open")
			So(cmd.Args[1:], ShouldResemble, []string{url})
		})

		Convey("macOS should use open", func() {
			cmd, ok := command(constant.Darwin, url)
			So(ok, ShouldBeTrue)
			So(cmd.Args, ShouldResemble, []string{"open", url})
		})

		Convey("Windows should go through the URL protocol handler", func() {
			cmd, ok := command(constant.Windows, url)
			So(ok, ShouldBeTrue)
			So(cmd.Args[1:], ShouldResemble, []string{"url.dll,FileProtocolHandler", url})
		})

		Convey("Other systems should be rejected", func() {
			_, ok := command("plan9", url)
			So(ok, ShouldBeFalse)
		})
	})
}
