package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeTarget struct {
	mu        sync.Mutex
	sample    Sample
	current   bool
	refreshes []uint64
	resumes   []uint64
}

func (t *fakeTarget) Sample(uint64) (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sample, t.current
}

func (t *fakeTarget) RefreshAndResume(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshes = append(t.refreshes, gen)
}

func (t *fakeTarget) Resume(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumes = append(t.resumes, gen)
}

type switchProbe struct {
	mu     sync.Mutex
	online bool
}

func (p *switchProbe) IsReachable(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *switchProbe) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

func TestWatchdogStall(t *testing.T) {
	Convey("Given a watchdog over an engine stuck while playing", t, func() {
		clk := clock.NewManual(epoch)
		target := &fakeTarget{
			current: true,
			sample:  Sample{PositionMs: 42_000, DurationMs: 200_000, Playing: true, Prepared: true},
		}
		probe := &switchProbe{online: true}
		w := NewWatchdog(7, target, probe, clk, DefaultWatchdogOptions())
		w.Start()
		defer w.Stop()

		Convey("It should refresh exactly once after ten stalled seconds", func() {
			clk.Advance(12 * time.Second)
			So(target.refreshes, ShouldBeEmpty)

			clk.Advance(2 * time.Second)
			So(target.refreshes, ShouldResemble, []uint64{7})

			Convey("and reset its stall timer", func() {
				_, stalled := w.StallStarted()
				So(stalled, ShouldBeFalse)

				clk.Advance(10 * time.Second)
				So(len(target.refreshes), ShouldEqual, 1)
			})
		})

		Convey("It should do nothing while the user has paused", func() {
			target.sample.UserPaused = true
			clk.Advance(time.Minute)
			So(target.refreshes, ShouldBeEmpty)
			So(target.resumes, ShouldBeEmpty)
		})

		Convey("Progress should reset the stall timer", func() {
			clk.Advance(8 * time.Second)
			target.mu.Lock()
			target.sample.PositionMs = 50_000
			target.mu.Unlock()
			clk.Advance(2 * time.Second)

			_, stalled := w.StallStarted()
			So(stalled, ShouldBeFalse)
			clk.Advance(10 * time.Second)
			So(target.refreshes, ShouldBeEmpty)
		})

		Convey("It should take no action while offline", func() {
			probe.set(false)
			clk.Advance(time.Minute)
			So(target.refreshes, ShouldBeEmpty)

			started, stalled := w.StallStarted()
			So(stalled, ShouldBeTrue)
			So(started, ShouldEqual, epoch.Add(2*time.Second))
		})
	})
}

func TestWatchdogSilentStop(t *testing.T) {
	Convey("Given a watchdog over an engine that stopped mid-track", t, func() {
		clk := clock.NewManual(epoch)
		target := &fakeTarget{
			current: true,
			sample:  Sample{PositionMs: 30_000, DurationMs: 200_000, Playing: false, Prepared: true},
		}
		w := NewWatchdog(3, target, nil, clk, WatchdogOptions{})
		w.Start()
		defer w.Stop()

		Convey("It should re-request start", func() {
			clk.Advance(2 * time.Second)
			So(target.resumes, ShouldResemble, []uint64{3})
		})

		Convey("It should not resume a user pause", func() {
			target.sample.UserPaused = true
			clk.Advance(10 * time.Second)
			So(target.resumes, ShouldBeEmpty)
		})

		Convey("It should not resume at the very start or near the end", func() {
			target.sample.PositionMs = 0
			clk.Advance(2 * time.Second)
			target.mu.Lock()
			target.sample.PositionMs = 199_000
			target.mu.Unlock()
			clk.Advance(2 * time.Second)
			So(target.resumes, ShouldBeEmpty)
		})

		Convey("It should wait for the engine to be prepared", func() {
			target.sample.Prepared = false
			clk.Advance(10 * time.Second)
			So(target.resumes, ShouldBeEmpty)
		})
	})
}

func TestWatchdogLifecycle(t *testing.T) {
	Convey("Given a running watchdog", t, func() {
		clk := clock.NewManual(epoch)
		target := &fakeTarget{current: true, sample: Sample{Prepared: true, Playing: true}}
		w := NewWatchdog(1, target, nil, clk, WatchdogOptions{})
		w.Start()

		Convey("Stop should cancel future ticks", func() {
			So(clk.Pending(), ShouldEqual, 1)
			w.Stop()
			w.Stop()
			So(clk.Pending(), ShouldEqual, 0)
		})

		Convey("It should stop itself once its generation is superseded", func() {
			target.current = false
			clk.Advance(2 * time.Second)
			So(clk.Pending(), ShouldEqual, 0)
			So(w.Generation(), ShouldEqual, uint64(1))
		})
	})
}

func TestExpiryScheduler(t *testing.T) {
	Convey("RefreshDelay", t, func() {
		So(RefreshDelay(epoch.Add(200*time.Second), epoch, time.Minute, 5*time.Second), ShouldEqual, 140*time.Second)
		So(RefreshDelay(epoch.Add(30*time.Second), epoch, time.Minute, 5*time.Second), ShouldEqual, 5*time.Second)
		So(RefreshDelay(epoch.Add(-time.Hour), epoch, time.Minute, 5*time.Second), ShouldEqual, 5*time.Second)
	})

	Convey("Given an expiry scheduler", t, func() {
		clk := clock.NewManual(epoch)
		s := NewExpiryScheduler(clk, 0, 0)
		var fired []uint64
		fire := func(gen uint64) { fired = append(fired, gen) }

		Convey("It should fire once, 60s ahead of expiry", func() {
			delay := s.Schedule(1, epoch.Add(200*time.Second), fire)
			So(delay, ShouldEqual, 140*time.Second)
			So(s.Armed(), ShouldBeTrue)

			clk.Advance(139 * time.Second)
			So(fired, ShouldBeEmpty)
			clk.Advance(time.Second)
			So(fired, ShouldResemble, []uint64{1})
			So(s.Armed(), ShouldBeFalse)

			clk.Advance(time.Hour)
			So(len(fired), ShouldEqual, 1)
		})

		Convey("Rescheduling should replace the armed timer", func() {
			s.Schedule(1, epoch.Add(200*time.Second), fire)
			s.Schedule(2, epoch.Add(400*time.Second), fire)
			clk.Advance(time.Hour)
			So(fired, ShouldResemble, []uint64{2})
		})

		Convey("Cancel should disarm", func() {
			s.Schedule(1, epoch.Add(200*time.Second), fire)
			s.Cancel()
			clk.Advance(time.Hour)
			So(fired, ShouldBeEmpty)
			So(clk.Pending(), ShouldEqual, 0)
		})
	})
}
