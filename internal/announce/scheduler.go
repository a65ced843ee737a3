// Package announce speaks the current altitude on a repeating cadence.
package announce

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync/atomic"
	"time"
)

// MinInterval is the shortest pause between two announcements, applied
// even when the configured delay is 0.
const MinInterval = 500 * time.Millisecond

// ErrRunning is returned by Run when the scheduler is already running.
var ErrRunning = errors.New("announce: scheduler already running")

// Speaker is the speech sink. Speak must flush anything still playing,
// speak text and return once the utterance has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Source provides the value to announce and the pause between
// announcements. *altitude.State satisfies it.
type Source interface {
	Rounded() int
	Delay() time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMinInterval overrides MinInterval.
func WithMinInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.minInterval = d
	}
}

// WithOnAnnounce registers a callback receiving every text that was
// spoken successfully.
func WithOnAnnounce(fn func(text string)) Option {
	return func(s *Scheduler) {
		s.onAnnounce = fn
	}
}

// Scheduler runs the announce loop: read the rounded value, speak it,
// wait for the utterance to finish, wait the delay, repeat. Because the
// next value is read only after the previous utterance completed, there
// is never more than one request in flight and the value spoken is
// always the freshest one.
type Scheduler struct {
	src         Source
	spk         Speaker
	onAnnounce  func(text string)
	minInterval time.Duration
	trigger     chan struct{}
	running     atomic.Bool
	spoken      atomic.Uint64
}

// New creates a scheduler. Call Run to start it.
func New(src Source, spk Speaker, opts ...Option) *Scheduler {
	s := &Scheduler{
		src:         src,
		spk:         spk,
		minInterval: MinInterval,
		trigger:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger asks for an announcement now instead of at the end of the
// current delay. The settings paths call it after a re-zero and after a
// delay change, since the delay is only read when a wait starts. Calls made
// while a trigger is already pending coalesce.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Spoken returns the number of completed announcements.
func (s *Scheduler) Spoken() uint64 { return s.spoken.Load() }

// Running reports whether Run is active.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Run announces immediately and then keeps announcing until ctx is
// cancelled. It blocks and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.running.Store(false)

	log.Printf("[announce] started (min interval %v)", s.minInterval)
	for {
		s.announce(ctx)

		wait := s.src.Delay()
		if wait < s.minInterval {
			wait = s.minInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("[announce] stopped after %d announcements", s.spoken.Load())
			return ctx.Err()
		case <-timer.C:
		case <-s.trigger:
			timer.Stop()
		}
	}
}

func (s *Scheduler) announce(ctx context.Context) {
	text := strconv.Itoa(s.src.Rounded())
	if err := s.spk.Speak(ctx, text); err != nil {
		if ctx.Err() == nil {
			log.Printf("[announce] speak %q failed: %v", text, err)
		}
		return
	}
	s.spoken.Add(1)
	if s.onAnnounce != nil {
		s.onAnnounce(text)
	}
}
