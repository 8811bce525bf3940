package playlist

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func tracks(n int) []Track {
	out := make([]Track, n)
	for i := range out {
		out[i] = Track{Ref: fmt.Sprintf("ref-%d", i), Title: fmt.Sprintf("Track %d", i)}
	}
	return out
}

func TestSetTracks(t *testing.T) {
	Convey("Given an empty playlist", t, func() {
		p := New()

		Convey("Current and Advance should report nothing", func() {
			So(p.Current().IsPresent(), ShouldBeFalse)
			So(p.Advance(1).IsPresent(), ShouldBeFalse)
			So(p.Index(), ShouldEqual, 0)
		})

		Convey("SetTracks should clamp the start index", func() {
			p.SetTracks(tracks(3), 10, true)
			So(p.Index(), ShouldEqual, 2)

			p.SetTracks(tracks(3), -4, true)
			So(p.Index(), ShouldEqual, 0)
		})

		Convey("Entries without a reference should be dropped", func() {
			p.SetTracks([]Track{{Ref: "a"}, {Ref: "  "}, {Title: "no ref"}, {Ref: "b"}}, 0, true)
			So(p.Len(), ShouldEqual, 2)
			So(p.Tracks()[1].Ref, ShouldEqual, "b")
		})

		Convey("Appending to an empty list should honor the start index", func() {
			p.SetTracks(tracks(3), 1, false)
			So(p.Index(), ShouldEqual, 1)
		})
	})

	Convey("Given a playlist positioned at index 1", t, func() {
		p := New()
		p.SetTracks(tracks(3), 1, true)

		Convey("Appending should keep the current index", func() {
			p.SetTracks([]Track{{Ref: "extra"}}, 0, false)
			So(p.Len(), ShouldEqual, 4)
			So(p.Index(), ShouldEqual, 1)
			So(p.Current().MustGet().Ref, ShouldEqual, "ref-1")
		})

		Convey("Replacing should reset to the start index", func() {
			p.SetTracks([]Track{{Ref: "x"}, {Ref: "y"}}, 0, true)
			So(p.Len(), ShouldEqual, 2)
			So(p.Current().MustGet().Ref, ShouldEqual, "x")
		})

		Convey("Replacing with nothing should empty the list", func() {
			p.SetTracks(nil, 3, true)
			So(p.Len(), ShouldEqual, 0)
			So(p.Index(), ShouldEqual, 0)
		})

		Convey("Tracks should return a copy", func() {
			list := p.Tracks()
			list[0].Ref = "mutated"
			So(p.Tracks()[0].Ref, ShouldEqual, "ref-0")
		})
	})
}

func TestAdvance(t *testing.T) {
	Convey("Wraparound should hold for any non-empty list", t, func() {
		for n := 1; n <= 6; n++ {
			p := New()

			p.SetTracks(tracks(n), n-1, true)
			So(p.Advance(1).MustGet().Ref, ShouldEqual, "ref-0")
			So(p.Index(), ShouldEqual, 0)

			p.SetTracks(tracks(n), 0, true)
			So(p.Advance(-1).MustGet().Ref, ShouldEqual, fmt.Sprintf("ref-%d", n-1))
			So(p.Index(), ShouldEqual, n-1)
		}
	})

	Convey("A single-track list should not move", t, func() {
		p := New()
		p.SetTracks(tracks(1), 0, true)
		So(p.Advance(1).MustGet().Ref, ShouldEqual, "ref-0")
		So(p.Advance(-1).MustGet().Ref, ShouldEqual, "ref-0")
	})

	Convey("Advancing through the list should visit every track in order", t, func() {
		p := New()
		p.SetTracks(tracks(4), 0, true)
		var seen []string
		for i := 0; i < 4; i++ {
			seen = append(seen, p.Advance(1).MustGet().Ref)
		}
		So(seen, ShouldResemble, []string{"ref-1", "ref-2", "ref-3", "ref-0"})
	})

	Convey("Clear should empty the list", t, func() {
		p := New()
		p.SetTracks(tracks(2), 1, true)
		p.Clear()
		So(p.Len(), ShouldEqual, 0)
		So(p.Current().IsPresent(), ShouldBeFalse)
	})
}
