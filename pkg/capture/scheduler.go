// Package capture drives RenderDoc frame captures from a host render loop.
//
// A [Scheduler] owns the capture count requested by the user and brackets
// the next frames the host renders. Requests arrive as line commands from
// stdin, a serial trigger port or the control panel.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"capture-assistant/pkg/renderdoc"
)

var (
	ErrAlreadyCapturing = errors.New("capture: a capture is already in progress")
	ErrNotCapturing     = errors.New("capture: no manual capture in progress")
)

// EventKind names a scheduler state change.
type EventKind string

const (
	EventRequested EventKind = "requested"
	EventStarted   EventKind = "started"
	EventEnded     EventKind = "ended"
)

// Event is delivered to the OnEvent hook. Remaining is the number of counted
// frames still pending after the change.
type Event struct {
	Kind      EventKind `json:"kind"`
	Remaining int       `json:"remaining"`
	Manual    bool      `json:"manual"`
}

// Scheduler brackets host frames with capture calls. It is safe for
// concurrent use: requests usually arrive on a different goroutine than the
// one rendering.
type Scheduler struct {
	api renderdoc.FrameCaptureAPI

	mu        sync.Mutex
	remaining int
	active    bool
	manual    bool
	onEvent   func(Event)
}

// NewScheduler returns a scheduler forwarding to api. A nil api accepts
// every request but never captures.
func NewScheduler(api renderdoc.FrameCaptureAPI) *Scheduler {
	return &Scheduler{api: api}
}

// OnEvent installs fn as the event hook. fn runs on the goroutine that
// caused the change and must not call back into the scheduler.
func (s *Scheduler) OnEvent(fn func(Event)) {
	s.mu.Lock()
	s.onEvent = fn
	s.mu.Unlock()
}

// Request replaces the pending frame count with n. Negative counts clear it.
func (s *Scheduler) Request(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.remaining = n
	fn := s.onEvent
	s.mu.Unlock()

	renderdoc.Logger().Debug("capture: frames requested", "count", n)
	emit(fn, Event{Kind: EventRequested, Remaining: n})
}

// Remaining returns how many counted frames are still pending.
func (s *Scheduler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Capturing reports whether a capture is open, counted or manual.
func (s *Scheduler) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Frame runs render, bracketing it with a capture when frames are pending
// and no manual capture is open. The capture is ended even if render panics.
func (s *Scheduler) Frame(render func()) {
	s.mu.Lock()
	capture := s.remaining > 0 && !s.active
	pending := s.remaining
	if capture {
		s.remaining--
		s.active = true
	}
	fn := s.onEvent
	s.mu.Unlock()

	if !capture {
		if render != nil {
			render()
		}
		return
	}

	renderdoc.Logger().Info("capture: capturing frame", "remaining", pending)
	s.start()
	emit(fn, Event{Kind: EventStarted, Remaining: pending - 1})
	defer func() {
		s.end()
		s.mu.Lock()
		s.active = false
		left := s.remaining
		s.mu.Unlock()
		emit(fn, Event{Kind: EventEnded, Remaining: left})
	}()

	if render != nil {
		render()
	}
}

// Begin opens a manual capture that stays open across frames until End.
func (s *Scheduler) Begin() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyCapturing
	}
	s.active = true
	s.manual = true
	left := s.remaining
	fn := s.onEvent
	s.mu.Unlock()

	s.start()
	emit(fn, Event{Kind: EventStarted, Remaining: left, Manual: true})
	return nil
}

// End closes the capture opened by Begin.
func (s *Scheduler) End() error {
	s.mu.Lock()
	if !s.active || !s.manual {
		s.mu.Unlock()
		return ErrNotCapturing
	}
	s.active = false
	s.manual = false
	left := s.remaining
	fn := s.onEvent
	s.mu.Unlock()

	s.end()
	emit(fn, Event{Kind: EventEnded, Remaining: left, Manual: true})
	return nil
}

// Trigger asks the API to capture the next presented frame on its own, for
// APIs that support it. It reports whether the request was forwarded.
func (s *Scheduler) Trigger() bool {
	t, ok := s.api.(interface{ TriggerCapture() })
	if !ok {
		return false
	}
	t.TriggerCapture()
	return true
}

// Run calls Frame at fps until ctx is done. A manual capture still open
// when ctx ends is closed before Run returns ctx's error.
func (s *Scheduler) Run(ctx context.Context, fps int, render func()) error {
	if fps <= 0 {
		return fmt.Errorf("capture: invalid frame rate %d", fps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.End(); err == nil {
				renderdoc.Logger().Info("capture: closed manual capture on shutdown")
			}
			return ctx.Err()
		case <-ticker.C:
			s.Frame(render)
		}
	}
}

func (s *Scheduler) start() {
	if s.api != nil {
		s.api.StartFrameCapture()
	}
}

func (s *Scheduler) end() {
	if s.api != nil {
		s.api.EndFrameCapture()
	}
}

func emit(fn func(Event), ev Event) {
	if fn != nil {
		fn(ev)
	}
}
