package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("Given the session instruments", t, func() {
		Convey("When a cache lookup is recorded", func() {
			hits := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit"))
			misses := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("miss"))
			CacheLookup(true)
			CacheLookup(false)
			CacheLookup(false)

			Convey("Then hits and misses are counted apart", func() {
				So(testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("hit")), ShouldEqual, hits+1)
				So(testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("miss")), ShouldEqual, misses+2)
			})
		})

		Convey("When resolutions are recorded", func() {
			failed := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("error"))
			Resolution(errors.New("boom"))

			Convey("Then the outcome label follows the error", func() {
				So(testutil.ToFloat64(ResolutionsTotal.WithLabelValues("error")), ShouldEqual, failed+1)
			})
		})

		Convey("When playing is toggled", func() {
			SetPlaying(true)
			So(testutil.ToFloat64(Playing), ShouldEqual, 1)
			SetPlaying(false)
			So(testutil.ToFloat64(Playing), ShouldEqual, 0)
		})

		Convey("When the handler is scraped", func() {
			GenerationsTotal.Inc()
			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then it exposes the namespaced series", func() {
				So(rec.Code, ShouldEqual, 200)
				So(string(body), ShouldContainSubstring, "pymusic_generations_total")
				So(string(body), ShouldContainSubstring, "pymusic_playing")
			})
		})
	})
}
