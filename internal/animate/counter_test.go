package animate

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/rickgao/aviarycare/internal/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCounter(t *testing.T) (*Counter, *clock.Fake, chan float64) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	frames := make(chan float64, 512)
	c := New(DefaultConfig(), WithClock(clk), WithFrameHook(func(v float64) {
		frames <- v
	}))
	t.Cleanup(c.Close)
	return c, clk, frames
}

func readFrames(t *testing.T, frames <-chan float64, n int) []float64 {
	t.Helper()
	out := make([]float64, 0, n)
	for len(out) < n {
		select {
		case v := <-frames:
			out = append(out, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d frames, want %d", len(out), n)
		}
	}
	return out
}

func expectNoFrames(t *testing.T, frames <-chan float64) {
	t.Helper()
	select {
	case v := <-frames:
		t.Fatalf("unexpected frame %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConfig_Interval(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.Interval(), time.Second/30; got != want {
		t.Errorf("Interval() = %v, want %v", got, want)
	}
}

func TestNew_FillsZeroConfig(t *testing.T) {
	c := New(Config{})
	defer c.Close()

	if c.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", c.cfg, DefaultConfig())
	}
	if c.Value() != 0 {
		t.Errorf("Value() = %v, want 0", c.Value())
	}
}

func TestCounter_FullAnimationTakes30Steps(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(300)
	if !c.Animating() {
		t.Fatal("Animating() = false after SetTarget")
	}

	clk.Advance(DefaultDuration)

	got := readFrames(t, frames, 30)
	for i, v := range got {
		want := float64(10 * (i + 1))
		if diff := v - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("frame %d = %v, want %v", i+1, v, want)
		}
	}
	if got[29] != 300 {
		t.Errorf("last frame = %v, want exactly 300", got[29])
	}

	waitFor(t, "animation to stop", func() bool { return !c.Animating() })
	waitFor(t, "ticker to stop", func() bool { return clk.ActiveTickers() == 0 })

	clk.Advance(DefaultDuration)
	expectNoFrames(t, frames)

	if c.Rounded() != 300 {
		t.Errorf("Rounded() = %d, want 300", c.Rounded())
	}
}

func TestCounter_LandsExactlyDespiteFloatDrift(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(7)
	clk.Advance(DefaultDuration)

	got := readFrames(t, frames, 30)
	if got[29] != 7 {
		t.Errorf("last frame = %v, want exactly 7", got[29])
	}
	if c.Value() != 7 {
		t.Errorf("Value() = %v, want 7", c.Value())
	}
}

func TestCounter_SnapsBelowThreshold(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(1)
	clk.Advance(29 * DefaultConfig().Interval())
	readFrames(t, frames, 29)

	if gap := 1 - c.Value(); gap <= 0 || gap >= DefaultSnapThreshold {
		t.Fatalf("gap = %v, want within (0, %v)", gap, DefaultSnapThreshold)
	}

	c.SetTarget(1)

	if c.Value() != 1 {
		t.Errorf("Value() = %v, want 1 after snap", c.Value())
	}
	if c.Animating() {
		t.Error("Animating() = true after snap")
	}
	waitFor(t, "superseded ticker to stop", func() bool { return clk.ActiveTickers() == 0 })

	clk.Advance(DefaultDuration)
	expectNoFrames(t, frames)
}

func TestCounter_RetargetMidAnimation(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(300)
	clk.Advance(15 * DefaultConfig().Interval())
	up := readFrames(t, frames, 15)
	if up[14] != 150 {
		t.Fatalf("frame 15 = %v, want 150", up[14])
	}

	c.SetTarget(90)
	waitFor(t, "old ticker to stop", func() bool { return clk.ActiveTickers() == 1 })

	clk.Advance(DefaultDuration)
	down := readFrames(t, frames, 30)

	prev := 150.0
	for i, v := range down {
		if v > prev {
			t.Fatalf("frame %d = %v moved away from target (prev %v)", i+1, v, prev)
		}
		if v < 90 {
			t.Fatalf("frame %d = %v overshot target 90", i+1, v)
		}
		prev = v
	}
	if down[29] != 90 {
		t.Errorf("last frame = %v, want 90", down[29])
	}
}

func TestCounter_MonotonicAcrossTargetChanges(t *testing.T) {
	c, clk, frames := newTestCounter(t)
	interval := DefaultConfig().Interval()

	targets := []struct {
		value int64
		ticks int
	}{
		{value: 1000, ticks: 7},
		{value: 1200, ticks: 3},
		{value: 50, ticks: 12},
		{value: 51, ticks: 30},
	}

	for _, tt := range targets {
		start := c.Value()
		c.SetTarget(tt.value)
		waitFor(t, "single ticker", func() bool { return clk.ActiveTickers() <= 1 })
		clk.Advance(time.Duration(tt.ticks) * interval)

		got := readFrames(t, frames, tt.ticks)
		prev := start
		up := float64(tt.value) > start
		for i, v := range got {
			if up && (v < prev || v > float64(tt.value)) {
				t.Fatalf("target %d frame %d = %v, prev %v", tt.value, i+1, v, prev)
			}
			if !up && (v > prev || v < float64(tt.value)) {
				t.Fatalf("target %d frame %d = %v, prev %v", tt.value, i+1, v, prev)
			}
			prev = v
		}
	}

	if c.Value() != 51 {
		t.Errorf("Value() = %v, want 51", c.Value())
	}
}

func TestCounter_PauseResume(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(300)
	clk.Advance(10 * DefaultConfig().Interval())
	readFrames(t, frames, 10)

	c.Pause()
	if c.Animating() {
		t.Error("Animating() = true while paused")
	}
	if !c.Paused() {
		t.Error("Paused() = false after Pause")
	}
	waitFor(t, "ticker to stop", func() bool { return clk.ActiveTickers() == 0 })

	c.SetTarget(200)
	clk.Advance(DefaultDuration)
	expectNoFrames(t, frames)
	if c.Value() != 100 {
		t.Errorf("Value() = %v, want held 100", c.Value())
	}
	if c.Target() != 200 {
		t.Errorf("Target() = %d, want 200", c.Target())
	}

	c.Resume()
	clk.Advance(DefaultDuration)
	got := readFrames(t, frames, 30)
	if got[0] <= 100 || got[29] != 200 {
		t.Errorf("resumed frames = %v .. %v, want (100, 200]", got[0], got[29])
	}
}

func TestCounter_CloseCancelsAnimation(t *testing.T) {
	c, clk, frames := newTestCounter(t)

	c.SetTarget(300)
	c.Close()

	if clk.ActiveTickers() != 0 {
		t.Errorf("ActiveTickers() = %d, want 0 after Close", clk.ActiveTickers())
	}

	c.SetTarget(500)
	clk.Advance(DefaultDuration)
	expectNoFrames(t, frames)

	if c.Target() != 300 {
		t.Errorf("Target() = %d, want 300 (ignored after Close)", c.Target())
	}
}
