package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/KoTeuKa404/pymusic/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestNewer(t *testing.T) {
	Convey("Newer", t, func() {
		Convey("Should order by major, minor and patch", func() {
			So(must(Newer("1.0.0", "0.9.9")), ShouldBeTrue)
			So(must(Newer("0.3.0", "0.3.1")), ShouldBeFalse)
			So(must(Newer("0.3.0", "0.3.0")), ShouldBeFalse)
			So(must(Newer("0.10.0", "0.9.0")), ShouldBeTrue)
		})

		Convey("Should accept a v prefix and short tags", func() {
			So(must(Newer("v0.4.0", "0.3.9")), ShouldBeTrue)
			So(must(Newer("v1.2", "1.2.0")), ShouldBeFalse)
			So(must(Newer("1", "0.9.9")), ShouldBeTrue)
		})

		Convey("Should rank a pre-release below its release", func() {
			So(must(Newer("0.4.0-rc.1", "0.4.0")), ShouldBeFalse)
			So(must(Newer("0.4.0", "0.4.0-rc.1")), ShouldBeTrue)
			So(must(Newer("0.4.0-rc.1", "0.3.0")), ShouldBeTrue)
			So(must(Newer("0.3.0+build.7", "0.3.0")), ShouldBeFalse)
		})

		Convey("Should reject malformed versions", func() {
			_, err := Newer("latest", "0.3.0")
			So(err, ShouldNotBeNil)
			_, err = Newer("0.3.0", "1.2.3.4")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLatest(t *testing.T) {
	Convey("Given a releases endpoint", t, func() {
		var (
			hits   atomic.Int32
			status atomic.Int32
		)
		status.Store(http.StatusInternalServerError)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if code := int(status.Load()); code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
			_, _ = w.Write([]byte(`{"tag_name":"v1.2.3"}`))
		}))
		defer server.Close()

		previous := releasesURL
		releasesURL = server.URL
		defer func() { releasesURL = previous }()

		Convey("A failing endpoint should report an error and cache nothing", func() {
			_, err := Latest(context.Background())
			So(err, ShouldNotBeNil)

			Convey("The next successful answer should be stripped of its prefix and cached", func() {
				status.Store(http.StatusOK)

				ver, err := Latest(context.Background())
				So(err, ShouldBeNil)
				So(ver, ShouldEqual, "1.2.3")

				before := hits.Load()
				ver, err = Latest(context.Background())
				So(err, ShouldBeNil)
				So(ver, ShouldEqual, "1.2.3")
				So(hits.Load(), ShouldEqual, before)
			})
		})
	})
}

func must(newer bool, err error) bool {
	So(err, ShouldBeNil)
	return newer
}
