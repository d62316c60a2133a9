package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/studyquiz/internal/summary"
	"github.com/go-co-op/gocron"
)

// DefaultSummaryHour is when the daily summary is sent when not configured
const DefaultSummaryHour = 21

// Notifier delivers the daily study report
type Notifier interface {
	SendDailySummary(s summary.Summary, incorrect int) error
}

// SummarySource builds today's summary
type SummarySource interface {
	Today(ctx context.Context, userID string) (summary.Summary, error)
}

// ReviewCounter counts questions waiting for review
type ReviewCounter interface {
	CountIncorrect(ctx context.Context, userID string) (int, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	summaries SummarySource
	reviews   ReviewCounter
	userID    string
	hour      int
}

// New creates a new scheduler instance running in loc
func New(notifier Notifier, summaries SummarySource, reviews ReviewCounter, userID string, hour int, loc *time.Location) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = DefaultSummaryHour
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		notifier:  notifier,
		summaries: summaries,
		reviews:   reviews,
		userID:    userID,
		hour:      hour,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	at := fmt.Sprintf("%02d:00", s.hour)
	if _, err := s.scheduler.Every(1).Day().At(at).Do(s.sendDailySummary); err != nil {
		return fmt.Errorf("failed to schedule daily summary: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	log.Printf("Daily summary scheduled at %s", at)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sendDailySummary() {
	if err := s.RunNow(context.Background()); err != nil {
		log.Printf("Error sending daily summary: %v", err)
	}
}

// RunNow builds and sends the report immediately. Nothing is sent when
// there was no study today and nothing is waiting for review.
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	today, err := s.summaries.Today(ctx, s.userID)
	if err != nil {
		return err
	}
	incorrect, err := s.reviews.CountIncorrect(ctx, s.userID)
	if err != nil {
		return err
	}

	if today.Empty() && incorrect == 0 {
		log.Printf("Nothing studied and nothing to review, skipping daily summary")
		return nil
	}
	return s.notifier.SendDailySummary(today, incorrect)
}
