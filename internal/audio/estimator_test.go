package audio

import (
	"testing"
	"time"
)

// fakeClock advances only when told to, making word estimates deterministic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *fakeClock) get() time.Time          { return c.now }

func newTestEstimator(text string, duration time.Duration) (*wordEstimator, *fakeClock, *[]WordEvent) {
	events := &[]WordEvent{}
	e := newWordEstimator(text, duration, func(ev WordEvent) {
		*events = append(*events, ev)
	})
	clock := &fakeClock{now: time.Unix(1000, 0)}
	e.now = clock.get
	return e, clock, events
}

func TestSplitWords(t *testing.T) {
	words := splitWords("  hello brave  new world ")
	want := []wordMark{
		{word: "hello", offset: 2},
		{word: "brave", offset: 8},
		{word: "new", offset: 15},
		{word: "world", offset: 19},
	}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("words[%d] = %+v, want %+v", i, words[i], want[i])
		}
	}
}

func TestEstimatorUniformSpread(t *testing.T) {
	// Four words over 400ms: one word per 100ms.
	e, clock, events := newTestEstimator("one two three four", 400*time.Millisecond)
	e.start()

	e.emitDue()
	if len(*events) != 1 || (*events)[0].Word != "one" {
		t.Fatalf("at t=0 events = %+v, want [one]", *events)
	}

	clock.advance(150 * time.Millisecond)
	e.emitDue()
	if len(*events) != 2 || (*events)[1].Word != "two" {
		t.Fatalf("at t=150ms events = %+v, want [one two]", *events)
	}

	clock.advance(300 * time.Millisecond)
	e.emitDue()
	if len(*events) != 4 {
		t.Fatalf("at t=450ms got %d events, want 4", len(*events))
	}
	for i, ev := range *events {
		if ev.Index != i {
			t.Errorf("event %d has Index %d", i, ev.Index)
		}
	}
}

func TestEstimatorEmitsEachWordOnce(t *testing.T) {
	e, clock, events := newTestEstimator("alpha beta", 200*time.Millisecond)
	e.start()

	clock.advance(time.Second)
	e.emitDue()
	e.emitDue()
	e.finish()
	e.finish()

	if len(*events) != 2 {
		t.Fatalf("got %d events, want 2", len(*events))
	}
}

func TestEstimatorPauseFreezesClock(t *testing.T) {
	e, clock, events := newTestEstimator("one two three four", 400*time.Millisecond)
	e.start()

	clock.advance(150 * time.Millisecond)
	e.emitDue()
	if len(*events) != 2 {
		t.Fatalf("before pause got %d events, want 2", len(*events))
	}

	e.pause()
	clock.advance(10 * time.Second)
	e.emitDue()
	if len(*events) != 2 {
		t.Errorf("paused clock emitted new events: %d", len(*events))
	}
	if got := e.elapsed(); got != 150*time.Millisecond {
		t.Errorf("elapsed while paused = %v, want 150ms", got)
	}

	e.resume()
	clock.advance(100 * time.Millisecond)
	e.emitDue()
	if len(*events) != 3 || (*events)[2].Word != "three" {
		t.Fatalf("after resume events = %+v, want third word", *events)
	}
	if got := e.elapsed(); got != 250*time.Millisecond {
		t.Errorf("elapsed after resume = %v, want 250ms", got)
	}
}

func TestEstimatorFinishEmitsRemaining(t *testing.T) {
	e, _, events := newTestEstimator("a b c d e", time.Second)
	e.start()
	e.finish()

	if len(*events) != 5 {
		t.Fatalf("finish emitted %d events, want 5", len(*events))
	}
	for i, ev := range *events {
		if ev.Index != i {
			t.Errorf("event %d has Index %d", i, ev.Index)
		}
	}
}

func TestEstimatorEmptyText(t *testing.T) {
	e, clock, events := newTestEstimator("", time.Second)
	e.start()
	clock.advance(time.Second)
	e.emitDue()
	e.finish()
	if len(*events) != 0 {
		t.Errorf("empty text emitted %d events", len(*events))
	}
}
