package network

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KoTeuKa404/pymusic/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	Convey("Given a server echoing the user agent", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(r.UserAgent()))
		}))
		defer server.Close()

		read := func(req *http.Request) string {
			resp, err := Client.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			return string(body)
		}

		Convey("Requests without an agent should identify the application", func() {
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			So(read(req), ShouldEqual, constant.App+"/"+constant.Version)
			So(req.Header.Get("User-Agent"), ShouldBeEmpty)
		})

		Convey("An explicit agent should be kept", func() {
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			req.Header.Set("User-Agent", "custom/1.0")
			So(read(req), ShouldEqual, "custom/1.0")
		})
	})
}
