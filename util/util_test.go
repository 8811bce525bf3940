package util

import (
	"testing"

	"github.com/KoTeuKa404/pymusic/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "track", "tracks"), ShouldEqual, "1 track")
		So(Quantify(2, "track", "tracks"), ShouldEqual, "2 tracks")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("playing"), ShouldEqual, "Playing")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestFormatMs(t *testing.T) {
	Convey("FormatMs", t, func() {
		So(FormatMs(0), ShouldEqual, "0:00")
		So(FormatMs(-5), ShouldEqual, "0:00")
		So(FormatMs(61_500), ShouldEqual, "1:01")
		So(FormatMs(3_723_000), ShouldEqual, "1:02:03")
	})
}

func TestMaxClamp(t *testing.T) {
	Convey("Max/Clamp", t, func() {
		So(Max(1, 5, 2), ShouldEqual, 5)
		So(Max[int](), ShouldEqual, 0)
		So(Clamp(7, 0, 5), ShouldEqual, 5)
		So(Clamp(-1, 0, 5), ShouldEqual, 0)
		So(Clamp(3, 0, 5), ShouldEqual, 3)
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		fs := filesystem.API()
		So(fs.WriteFile("/tmp/a/b.txt", []byte("x"), 0o644), ShouldBeNil)

		Convey("Should remove a single file", func() {
			So(Delete("/tmp/a/b.txt"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/a/b.txt")), ShouldBeFalse)
		})

		Convey("Should remove a directory tree", func() {
			So(Delete("/tmp/a"), ShouldBeNil)
			So(lo.Must(fs.Exists("/tmp/a")), ShouldBeFalse)
		})

		Convey("Should fail for a missing path", func() {
			So(Delete("/nope"), ShouldNotBeNil)
		})
	})
}
