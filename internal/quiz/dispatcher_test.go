package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/studyquiz/pkg/models"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls []Outcome
	err   error
	delay time.Duration
}

func (f *fakeRecorder) RecordOutcome(ctx context.Context, userID, questionID string, isCorrect bool) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Outcome{UserID: userID, QuestionID: questionID, IsCorrect: isCorrect})
	return f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestDispatcherRecordsOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(rec, time.Second)

	sink := d.SinkFor(7)
	sink(Outcome{UserID: "u", QuestionID: "q1", IsCorrect: true})
	sink(Outcome{UserID: "u", QuestionID: "q2", IsCorrect: false})
	d.Close()

	if rec.count() != 2 {
		t.Fatalf("expected 2 recorded outcomes, got %d", rec.count())
	}
	for err := range d.Errors() {
		t.Errorf("unexpected error %v", err)
	}
}

func TestDispatcherReportsFailures(t *testing.T) {
	storeErr := errors.New("connection refused")
	rec := &fakeRecorder{err: storeErr}
	d := NewDispatcher(rec, time.Second)

	d.Dispatch(42, Outcome{UserID: "u", QuestionID: "q1", IsCorrect: true})

	select {
	case oe := <-d.Errors():
		if oe.Origin != 42 {
			t.Errorf("expected origin 42, got %d", oe.Origin)
		}
		if oe.Outcome.QuestionID != "q1" {
			t.Errorf("unexpected outcome %+v", oe.Outcome)
		}
		if !errors.Is(oe, storeErr) {
			t.Errorf("error does not unwrap to store error: %v", oe)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
	d.Close()
}

func TestDispatchDoesNotBlockCaller(t *testing.T) {
	rec := &fakeRecorder{delay: 200 * time.Millisecond}
	d := NewDispatcher(rec, time.Second)

	start := time.Now()
	d.Dispatch(1, Outcome{QuestionID: "q1"})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("dispatch blocked for %v", elapsed)
	}
	d.Close()
	if rec.count() != 1 {
		t.Fatalf("expected write to complete before Close returned, got %d", rec.count())
	}
}

func TestDispatcherTimeout(t *testing.T) {
	rec := &fakeRecorder{delay: time.Second}
	d := NewDispatcher(rec, 20*time.Millisecond)

	d.Dispatch(3, Outcome{QuestionID: "slow"})
	select {
	case oe := <-d.Errors():
		if !errors.Is(oe, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", oe.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deadline error")
	}
	d.Close()
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(rec, time.Second)
	d.Close()
	d.Close()

	d.Dispatch(1, Outcome{QuestionID: "late"})
	time.Sleep(20 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("outcome recorded after close")
	}
}

func TestSessionWithDispatcher(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(rec, time.Second)

	s, err := NewSession(ModeFlashcard, "u", []models.Question{saQuestion("c1", "a")}, d.SinkFor(1))
	if err != nil {
		t.Fatal(err)
	}
	s.Flip()
	s.Flip()
	s.Flip()
	if _, err := s.SelfGrade(true); err != nil {
		t.Fatal(err)
	}
	d.Close()

	if rec.count() != 1 {
		t.Fatalf("expected exactly one write, got %d", rec.count())
	}
	if got := rec.calls[0]; got.UserID != "u" || got.QuestionID != "c1" || !got.IsCorrect {
		t.Errorf("unexpected write %+v", got)
	}
}
