package quiz

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// OutcomeRecorder persists graded outcomes
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, userID, questionID string, isCorrect bool) error
}

// OutcomeError reports a failed log write back to whoever produced it
type OutcomeError struct {
	Origin  int64
	Outcome Outcome
	Err     error
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("failed to record outcome for question %s: %v", e.Outcome.QuestionID, e.Err)
}

func (e *OutcomeError) Unwrap() error { return e.Err }

// Dispatcher writes outcomes in detached goroutines so grading never waits
// on storage. Failures are delivered on Errors.
type Dispatcher struct {
	recorder OutcomeRecorder
	timeout  time.Duration
	errs     chan *OutcomeError

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A non-positive timeout defaults to 10s.
func NewDispatcher(recorder OutcomeRecorder, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		recorder: recorder,
		timeout:  timeout,
		errs:     make(chan *OutcomeError, 64),
	}
}

// Errors returns the channel on which failed writes are reported
func (d *Dispatcher) Errors() <-chan *OutcomeError {
	return d.errs
}

// Dispatch records o in the background. origin is an opaque caller tag
// that comes back on the error, if any.
func (d *Dispatcher) Dispatch(origin int64, o Outcome) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("Dropping outcome for question %s: dispatcher closed", o.QuestionID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := d.recorder.RecordOutcome(ctx, o.UserID, o.QuestionID, o.IsCorrect)
		if err == nil {
			return
		}

		oe := &OutcomeError{Origin: origin, Outcome: o, Err: err}
		select {
		case d.errs <- oe:
		default:
			log.Printf("Outcome error channel full, dropping: %v", oe)
		}
	}()
}

// SinkFor binds a Sink to origin
func (d *Dispatcher) SinkFor(origin int64) Sink {
	return func(o Outcome) {
		d.Dispatch(origin, o)
	}
}

// Close waits for in-flight writes and closes the error channel
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errs)
}
