package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingAPI logs every forwarded call in order.
type recordingAPI struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingAPI) StartFrameCapture() { r.record("start") }
func (r *recordingAPI) EndFrameCapture()   { r.record("end") }

func (r *recordingAPI) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recordingAPI) log() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.calls, ",")
}

// triggerAPI also supports TriggerCapture.
type triggerAPI struct {
	recordingAPI
}

func (t *triggerAPI) TriggerCapture() { t.record("trigger") }

func TestFrameWithoutRequestDoesNotCapture(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)

	rendered := 0
	for i := 0; i < 3; i++ {
		s.Frame(func() { rendered++ })
	}
	if rendered != 3 {
		t.Errorf("rendered %d frames, want 3", rendered)
	}
	if got := api.log(); got != "" {
		t.Errorf("calls = %q, want none", got)
	}
}

func TestRequestBracketsExactlyNFrames(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)
	s.Request(2)

	for i := 0; i < 4; i++ {
		s.Frame(func() { api.record("render") })
	}

	want := "start,render,end,start,render,end,render,render"
	if got := api.log(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", s.Remaining())
	}
}

func TestRequestReplacesCount(t *testing.T) {
	s := NewScheduler(&recordingAPI{})
	s.Request(5)
	s.Request(1)
	if s.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", s.Remaining())
	}
	s.Request(-3)
	if s.Remaining() != 0 {
		t.Errorf("Remaining after negative = %d, want 0", s.Remaining())
	}
}

func TestFrameEndsCaptureOnPanic(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)
	s.Request(1)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		s.Frame(func() { panic("render failed") })
	}()

	if got := api.log(); got != "start,end" {
		t.Errorf("calls = %q, want start,end", got)
	}
	if s.Capturing() {
		t.Error("scheduler still capturing after panic")
	}
}

func TestManualCapture(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)

	if err := s.End(); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("End without Begin = %v, want ErrNotCapturing", err)
	}
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := s.Begin(); !errors.Is(err, ErrAlreadyCapturing) {
		t.Fatalf("second Begin = %v, want ErrAlreadyCapturing", err)
	}

	// Counted frames wait while a manual capture is open.
	s.Request(1)
	s.Frame(func() { api.record("render") })
	if s.Remaining() != 1 {
		t.Errorf("Remaining during manual capture = %d, want 1", s.Remaining())
	}

	if err := s.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	s.Frame(func() { api.record("render") })

	want := "start,render,end,start,render,end"
	if got := api.log(); got != want {
		t.Errorf("calls = %q, want %q", got, want)
	}
}

func TestEndDoesNotCloseCountedCapture(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)
	s.Request(1)

	s.Frame(func() {
		if err := s.End(); !errors.Is(err, ErrNotCapturing) {
			t.Errorf("End during counted frame = %v, want ErrNotCapturing", err)
		}
		if err := s.Begin(); !errors.Is(err, ErrAlreadyCapturing) {
			t.Errorf("Begin during counted frame = %v, want ErrAlreadyCapturing", err)
		}
	})
	if got := api.log(); got != "start,end" {
		t.Errorf("calls = %q, want start,end", got)
	}
}

func TestNilAPIAcceptsRequests(t *testing.T) {
	s := NewScheduler(nil)
	s.Request(1)
	rendered := false
	s.Frame(func() { rendered = true })
	if !rendered {
		t.Error("frame not rendered")
	}
	if err := s.Begin(); err != nil {
		t.Errorf("Begin = %v", err)
	}
	if err := s.End(); err != nil {
		t.Errorf("End = %v", err)
	}
	if s.Trigger() {
		t.Error("Trigger forwarded with nil api")
	}
}

func TestTrigger(t *testing.T) {
	if NewScheduler(&recordingAPI{}).Trigger() {
		t.Error("Trigger forwarded to an API without TriggerCapture")
	}
	api := &triggerAPI{}
	if !NewScheduler(api).Trigger() {
		t.Fatal("Trigger not forwarded")
	}
	if got := api.log(); got != "trigger" {
		t.Errorf("calls = %q, want trigger", got)
	}
}

func TestEvents(t *testing.T) {
	s := NewScheduler(&recordingAPI{})
	var events []Event
	s.OnEvent(func(ev Event) { events = append(events, ev) })

	s.Request(1)
	s.Frame(nil)
	_ = s.Begin()
	_ = s.End()

	want := []Event{
		{Kind: EventRequested, Remaining: 1},
		{Kind: EventStarted, Remaining: 0},
		{Kind: EventEnded, Remaining: 0},
		{Kind: EventStarted, Remaining: 0, Manual: true},
		{Kind: EventEnded, Remaining: 0, Manual: true},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(events), events, len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestRunStopsAndClosesManualCapture(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, 500, func() {
			select {
			case frames <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("Run rendered no frame")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if s.Capturing() {
		t.Error("manual capture left open after Run")
	}
	if got := api.log(); got != "start,end" {
		t.Errorf("calls = %q, want start,end", got)
	}
}

func TestRunRejectsBadRate(t *testing.T) {
	s := NewScheduler(nil)
	if err := s.Run(context.Background(), 0, nil); err == nil {
		t.Error("Run with fps 0 should fail")
	}
}

func TestConcurrentRequests(t *testing.T) {
	api := &recordingAPI{}
	s := NewScheduler(api)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Request(1)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			s.Frame(nil)
		}
	}()
	wg.Wait()

	starts := strings.Count(api.log(), "start")
	ends := strings.Count(api.log(), "end")
	if starts != ends {
		t.Errorf("unbalanced capture calls: %d starts, %d ends", starts, ends)
	}
}
