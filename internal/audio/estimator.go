package audio

import (
	"sync"
	"time"
	"unicode"
)

// WordEvent marks the estimated start of one spoken word.
type WordEvent struct {
	// Index of the word within the chunk text, starting at 0.
	Index int
	Word  string
	// CharOffset is the rune offset of the word within the chunk text.
	CharOffset int
	// Elapsed is the playback position the word was estimated at, with
	// paused time excluded.
	Elapsed time.Duration
}

type wordMark struct {
	word   string
	offset int
}

// wordEstimator spreads a clip's duration uniformly across the words of its
// source text and emits each word exactly once when the playback clock
// passes its estimated start. Real speech is not uniform, so boundaries are
// approximate; the clock excludes paused time so estimates stay aligned
// across pause and resume.
type wordEstimator struct {
	mu          sync.Mutex
	words       []wordMark
	perWord     time.Duration
	onWord      func(WordEvent)
	now         func() time.Time
	playStart   time.Time
	totalPaused time.Duration
	pausedAt    time.Time
	paused      bool
	started     bool
	emitted     int
}

func newWordEstimator(text string, duration time.Duration, onWord func(WordEvent)) *wordEstimator {
	words := splitWords(text)
	e := &wordEstimator{
		words:  words,
		onWord: onWord,
		now:    time.Now,
	}
	if len(words) > 0 {
		e.perWord = duration / time.Duration(len(words))
	}
	return e
}

// splitWords returns whitespace-separated words with their rune offsets.
func splitWords(text string) []wordMark {
	var words []wordMark
	offset := 0
	start := -1
	var current []rune
	for _, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, wordMark{word: string(current), offset: start})
				start = -1
				current = current[:0]
			}
		} else {
			if start < 0 {
				start = offset
			}
			current = append(current, r)
		}
		offset++
	}
	if start >= 0 {
		words = append(words, wordMark{word: string(current), offset: start})
	}
	return words
}

func (e *wordEstimator) start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.playStart = e.now()
}

func (e *wordEstimator) pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.paused {
		return
	}
	e.paused = true
	e.pausedAt = e.now()
}

func (e *wordEstimator) resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	e.totalPaused += e.now().Sub(e.pausedAt)
	e.paused = false
}

// elapsed is the playback position with paused time excluded.
func (e *wordEstimator) elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedLocked()
}

func (e *wordEstimator) elapsedLocked() time.Duration {
	if !e.started {
		return 0
	}
	end := e.now()
	if e.paused {
		end = e.pausedAt
	}
	return end.Sub(e.playStart) - e.totalPaused
}

// emitDue fires events for every word whose estimated start has passed.
// Called on each playback tick.
func (e *wordEstimator) emitDue() {
	e.mu.Lock()
	if !e.started || e.paused || e.perWord <= 0 {
		e.mu.Unlock()
		return
	}
	elapsed := e.elapsedLocked()
	due := int(elapsed/e.perWord) + 1
	if due > len(e.words) {
		due = len(e.words)
	}
	events := e.collectLocked(due, elapsed)
	e.mu.Unlock()

	e.fire(events)
}

// finish fires any words not yet emitted. Called once when the clip ends so
// short clips and coarse ticks never swallow trailing words.
func (e *wordEstimator) finish() {
	e.mu.Lock()
	events := e.collectLocked(len(e.words), e.elapsedLocked())
	e.mu.Unlock()

	e.fire(events)
}

func (e *wordEstimator) collectLocked(due int, elapsed time.Duration) []WordEvent {
	var events []WordEvent
	for ; e.emitted < due; e.emitted++ {
		w := e.words[e.emitted]
		events = append(events, WordEvent{
			Index:      e.emitted,
			Word:       w.word,
			CharOffset: w.offset,
			Elapsed:    elapsed,
		})
	}
	return events
}

func (e *wordEstimator) fire(events []WordEvent) {
	if e.onWord == nil {
		return
	}
	for _, ev := range events {
		e.onWord(ev)
	}
}
