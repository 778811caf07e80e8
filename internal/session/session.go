// Package session implements the typing session core: ordered key event
// capture and edit-tolerant accuracy reconciliation against a reference
// text. A Session is explicitly constructed and passed by the host; it
// assumes a single producer and performs no locking.
package session

import (
	"math"
	"time"
	"unicode"

	"keyprint/internal/model"
)

// maxLastKeys bounds the rolling "last keys pressed" strip the host may
// render. Oldest entries are evicted first. This is a display policy,
// not a property of the event log.
const maxLastKeys = 20

// defaultEchoSkip lists non-printing accelerator keys excluded from the
// cosmetic last-keys strip. They are still appended to the event log.
var defaultEchoSkip = []string{"Shift", "Control", "Alt", "Meta", "CapsLock", "Tab"}

// Session owns one typing session: the append-only event log, the
// accuracy counters, and the per-letter stats, all bound to a single
// reference text and cleared together by Reset.
type Session struct {
	reference []rune
	typed     []rune

	events   []model.KeyEvent
	counters model.AccuracyCounters
	letters  map[rune]*model.LetterStat

	echoSkip map[string]struct{}
	lastKeys []string

	inProgress bool
	completed  bool
	startMs    int64
	endMs      int64

	now func() int64
}

// New constructs a session bound to the given reference text.
func New(reference string) *Session {
	return NewWithClock(reference, func() int64 {
		return time.Now().UnixMilli()
	})
}

// NewWithClock constructs a session with an explicit millisecond clock.
func NewWithClock(reference string, now func() int64) *Session {
	s := &Session{now: now}
	s.Reset(reference)
	return s
}

// Reset clears the event log, counters, letter stats, and timing markers
// and binds the session to a (possibly new) reference text.
func (s *Session) Reset(reference string) {
	s.reference = []rune(reference)
	s.typed = nil
	s.events = nil
	s.counters = model.AccuracyCounters{}
	s.letters = map[rune]*model.LetterStat{}
	s.lastKeys = nil
	s.inProgress = false
	s.completed = false
	s.startMs = 0
	s.endMs = 0
	if s.echoSkip == nil {
		s.SetEchoSkip(defaultEchoSkip)
	}
}

// SetEchoSkip replaces the set of keys excluded from the last-keys strip.
func (s *Session) SetEchoSkip(keys []string) {
	s.echoSkip = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s.echoSkip[k] = struct{}{}
	}
}

// RecordPress appends a press event. The first press of a session marks
// it in progress, records the start timestamp, and clears any prior
// completion state. Capture is infallible: a malformed event (empty key)
// is recorded as-is.
func (s *Session) RecordPress(key, code string, timestamp int64, nativeCode int) {
	if !s.inProgress {
		s.inProgress = true
		s.completed = false
		s.startMs = timestamp
		s.endMs = 0
	}
	s.events = append(s.events, model.KeyEvent{
		Type:       model.EventPress,
		Key:        key,
		Code:       code,
		Timestamp:  timestamp,
		NativeCode: nativeCode,
	})
	if key == "Backspace" {
		s.counters.Backspaces++
	}
	if _, skip := s.echoSkip[key]; !skip {
		s.lastKeys = append(s.lastKeys, key)
		if len(s.lastKeys) > maxLastKeys {
			s.lastKeys = s.lastKeys[len(s.lastKeys)-maxLastKeys:]
		}
	}
}

// RecordRelease appends a release event.
func (s *Session) RecordRelease(key, code string, timestamp int64, nativeCode int) {
	s.events = append(s.events, model.KeyEvent{
		Type:       model.EventRelease,
		Key:        key,
		Code:       code,
		Timestamp:  timestamp,
		NativeCode: nativeCode,
	})
}

// ApplyText reconciles the new full text-buffer value against the
// previous one and updates the accuracy counters. Three edit shapes are
// recognized: append, delete, and same-length replace. Deletions change
// no counters; mistakes stay in the history and backspaces are tracked
// separately by the recorder. Returns the updated counters and whether
// the session is complete.
func (s *Session) ApplyText(newText string) (model.AccuracyCounters, bool) {
	next := []rune(newText)
	prev := s.typed

	switch {
	case len(next) > len(prev):
		for p := len(prev); p < len(next); p++ {
			s.scorePosition(p, next[p])
		}
	case len(next) < len(prev):
		// Deletion: history is never rolled back.
	default:
		for p := range next {
			if next[p] != prev[p] {
				s.scorePosition(p, next[p])
				break
			}
		}
	}
	s.typed = next

	if !s.completed && string(next) == string(s.reference) {
		s.completed = true
		s.inProgress = false
		s.endMs = s.now()
	}
	return s.counters, s.completed
}

func (s *Session) scorePosition(p int, typed rune) {
	match := p < len(s.reference) && s.reference[p] == typed
	s.counters.Typed++
	if match {
		s.counters.Correct++
	} else {
		s.counters.Errors++
	}
	if letter, ok := canonicalLetter(typed); ok {
		entry := s.letterEntry(letter)
		entry.Total++
		if !match {
			entry.Errors++
		}
	}
}

func (s *Session) letterEntry(letter rune) *model.LetterStat {
	entry, ok := s.letters[letter]
	if !ok {
		entry = &model.LetterStat{}
		s.letters[letter] = entry
	}
	return entry
}

// canonicalLetter case-folds a typed rune to its stat key. Only Latin
// and Cyrillic letters participate in per-letter stats.
func canonicalLetter(r rune) (rune, bool) {
	if !unicode.Is(unicode.Latin, r) && !unicode.Is(unicode.Cyrillic, r) {
		return 0, false
	}
	return unicode.ToUpper(r), true
}

// Events returns a copy of the event log in insertion order.
func (s *Session) Events() []model.KeyEvent {
	out := make([]model.KeyEvent, len(s.events))
	copy(out, s.events)
	return out
}

// LastKeys returns the rolling strip of recently pressed printable keys.
func (s *Session) LastKeys() []string {
	out := make([]string, len(s.lastKeys))
	copy(out, s.lastKeys)
	return out
}

// Counters returns the current accuracy counters.
func (s *Session) Counters() model.AccuracyCounters {
	return s.counters
}

// AccuracyPercent reports rounded accuracy in [0,100]; 0 when nothing
// has been typed yet.
func (s *Session) AccuracyPercent() int {
	if s.counters.Typed == 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(s.counters.Correct) / float64(s.counters.Typed)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LetterStats returns a copy of the per-letter stats keyed by the
// canonicalized letter.
func (s *Session) LetterStats() map[string]model.LetterStat {
	out := make(map[string]model.LetterStat, len(s.letters))
	for r, stat := range s.letters {
		out[string(r)] = *stat
	}
	return out
}

// LetterErrorRate reports errors/total in [0,1] for a letter, 0 when the
// letter has no attempts.
func (s *Session) LetterErrorRate(letter rune) float64 {
	key, ok := canonicalLetter(letter)
	if !ok {
		return 0
	}
	entry, ok := s.letters[key]
	if !ok || entry.Total == 0 {
		return 0
	}
	return float64(entry.Errors) / float64(entry.Total)
}

// Reference returns the session's reference text.
func (s *Session) Reference() string {
	return string(s.reference)
}

// Typed returns the latest reconciled text-buffer value.
func (s *Session) Typed() string {
	return string(s.typed)
}

// InProgress reports whether the first press has arrived and the session
// has not yet completed.
func (s *Session) InProgress() bool {
	return s.inProgress
}

// Completed reports whether the typed text has matched the reference.
func (s *Session) Completed() bool {
	return s.completed
}

// StartMs returns the first-press timestamp, 0 before any press.
func (s *Session) StartMs() int64 {
	return s.startMs
}

// EndMs returns the completion timestamp, 0 while incomplete.
func (s *Session) EndMs() int64 {
	return s.endMs
}

// ElapsedMs reports the active window for speed calculations: start to
// end when complete, start to now while typing, 0 before the first press.
func (s *Session) ElapsedMs() int64 {
	if s.startMs == 0 {
		return 0
	}
	if s.completed && s.endMs > 0 {
		return s.endMs - s.startMs
	}
	return s.now() - s.startMs
}
