package streamcache

import (
	"fmt"
	"testing"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/KoTeuKa404/pymusic/filesystem"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func expiring(in time.Duration) Entry {
	return Entry{
		URL:       "https://cdn.example/stream",
		Headers:   map[string]string{"User-Agent": "test"},
		ExpiresAt: mo.Some(epoch.Add(in)),
	}
}

func TestCacheTTL(t *testing.T) {
	Convey("Given a cache with the default safety margin", t, func() {
		clk := clock.NewManual(epoch)
		c := New(0, 0, clk)

		Convey("A fresh entry should round-trip exactly", func() {
			c.Put("A", expiring(time.Hour))
			got, ok := c.Get("A").Get()
			So(ok, ShouldBeTrue)
			So(got.Ref, ShouldEqual, "A")
			So(got.URL, ShouldEqual, "https://cdn.example/stream")
			So(got.Headers, ShouldResemble, map[string]string{"User-Agent": "test"})
			So(got.ExpiresAt.MustGet(), ShouldEqual, epoch.Add(time.Hour))
			So(got.InsertedAt, ShouldEqual, epoch)
		})

		Convey("Absent references should miss", func() {
			So(c.Get("missing").IsPresent(), ShouldBeFalse)
		})

		Convey("An entry should miss exactly when now + 120s reaches its expiry", func() {
			c.Put("A", expiring(200*time.Second))

			clk.Advance(79 * time.Second)
			So(c.Get("A").IsPresent(), ShouldBeTrue)

			clk.Advance(time.Second)
			So(c.Get("A").IsPresent(), ShouldBeFalse)

			Convey("and the stale entry should be dropped", func() {
				So(c.Len(), ShouldEqual, 0)
			})
		})

		Convey("An entry inserted inside the margin should miss at once", func() {
			c.Put("A", expiring(60*time.Second))
			So(c.Get("A").IsPresent(), ShouldBeFalse)
		})

		Convey("Entries without expiry should never go stale", func() {
			c.Put("A", Entry{URL: "u"})
			clk.Advance(1000 * time.Hour)
			So(c.Get("A").IsPresent(), ShouldBeTrue)
		})

		Convey("Put should replace an entry wholesale", func() {
			c.Put("A", expiring(time.Hour))
			c.Put("A", Entry{URL: "other"})
			got := c.Get("A").MustGet()
			So(got.URL, ShouldEqual, "other")
			So(got.Headers, ShouldBeNil)
			So(got.ExpiresAt.IsPresent(), ShouldBeFalse)
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("Returned headers should not alias the stored ones", func() {
			c.Put("A", expiring(time.Hour))
			got := c.Get("A").MustGet()
			got.Headers["User-Agent"] = "mutated"
			So(c.Get("A").MustGet().Headers["User-Agent"], ShouldEqual, "test")
		})

		Convey("Invalidate should drop the entry", func() {
			c.Put("A", expiring(time.Hour))
			c.Invalidate("A")
			So(c.Get("A").IsPresent(), ShouldBeFalse)
		})
	})
}

func TestCacheEviction(t *testing.T) {
	Convey("Given a cache of capacity 3", t, func() {
		c := New(3, 0, clock.NewManual(epoch))

		Convey("Inserting capacity+1 keys should evict the first inserted", func() {
			for i := 0; i < 4; i++ {
				c.Put(fmt.Sprintf("k%d", i), expiring(time.Hour))
			}
			So(c.Len(), ShouldEqual, 3)
			So(c.Get("k0").IsPresent(), ShouldBeFalse)
			So(c.Get("k1").IsPresent(), ShouldBeTrue)
			So(c.Get("k3").IsPresent(), ShouldBeTrue)
		})

		Convey("Re-putting a key should make it the newest", func() {
			c.Put("a", expiring(time.Hour))
			c.Put("b", expiring(time.Hour))
			c.Put("c", expiring(time.Hour))
			c.Put("a", expiring(time.Hour))
			c.Put("d", expiring(time.Hour))

			So(c.Get("b").IsPresent(), ShouldBeFalse)
			So(c.Get("a").IsPresent(), ShouldBeTrue)
		})

		Convey("Reading should not refresh insertion order", func() {
			c.Put("a", expiring(time.Hour))
			c.Put("b", expiring(time.Hour))
			c.Put("c", expiring(time.Hour))
			c.Get("a")
			c.Put("d", expiring(time.Hour))

			So(c.Get("a").IsPresent(), ShouldBeFalse)
		})
	})

	Convey("Given the default capacity", t, func() {
		c := New(0, 0, clock.NewManual(epoch))

		Convey("It should hold exactly 50 entries", func() {
			for i := 0; i < DefaultCapacity+1; i++ {
				c.Put(fmt.Sprintf("k%d", i), expiring(time.Hour))
			}
			So(c.Len(), ShouldEqual, DefaultCapacity)
			So(c.Get("k0").IsPresent(), ShouldBeFalse)
		})
	})
}

func TestSnapshotRestore(t *testing.T) {
	Convey("Given a cache with fresh and stale entries", t, func() {
		clk := clock.NewManual(epoch)
		c := New(10, 0, clk)
		c.Put("old", expiring(150*time.Second))
		c.Put("new", expiring(time.Hour))
		clk.Advance(time.Minute)

		Convey("Snapshot should only contain fresh entries", func() {
			snap := c.Snapshot()
			So(len(snap), ShouldEqual, 1)
			So(snap[0].Ref, ShouldEqual, "new")
		})

		Convey("Restore should keep insertion times and skip stale entries", func() {
			other := New(10, 0, clk)
			n := other.Restore([]Entry{
				{Ref: "new", URL: "u", ExpiresAt: mo.Some(epoch.Add(time.Hour)), InsertedAt: epoch},
				{Ref: "dead", URL: "u", ExpiresAt: mo.Some(epoch.Add(time.Minute))},
				{URL: "no ref"},
			})
			So(n, ShouldEqual, 1)
			So(other.Get("new").MustGet().InsertedAt, ShouldEqual, epoch)
			So(other.Get("dead").IsPresent(), ShouldBeFalse)
		})

		Convey("A gache store should round-trip the snapshot", func() {
			store := NewGacheStore("/cache/pymusic/streams.json")
			So(c.Persist(store), ShouldBeNil)

			other := New(10, 0, clk)
			n, err := other.Reload(store)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			got := other.Get("new").MustGet()
			So(got.URL, ShouldEqual, "https://cdn.example/stream")
			So(got.ExpiresAt.MustGet().Equal(epoch.Add(time.Hour)), ShouldBeTrue)
		})
	})
}
