package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/studyquiz/pkg/models"
	"github.com/google/uuid"
)

// LearningLogRepository handles database operations for the answer log
type LearningLogRepository struct {
	now func() time.Time
}

// NewLearningLogRepository creates a new repository instance
func NewLearningLogRepository() *LearningLogRepository {
	return &LearningLogRepository{now: time.Now}
}

// RecordOutcome upserts the outcome for (userID, questionID). A later
// outcome overwrites the earlier one and refreshes answered_at. Unknown
// questions return ErrNotFound.
func (r *LearningLogRepository) RecordOutcome(ctx context.Context, userID, questionID string, isCorrect bool) error {
	var exists bool
	err := DB.GetContext(ctx, &exists, DB.Rebind("SELECT EXISTS (SELECT 1 FROM questions WHERE id = ?)"), questionID)
	if err != nil {
		return fmt.Errorf("failed to check question: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	query := DB.Rebind(`
		INSERT INTO learning_log (id, user_id, question_id, is_correct, answered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET is_correct = excluded.is_correct, answered_at = excluded.answered_at
	`)
	_, err = DB.ExecContext(ctx, query, uuid.New().String(), userID, questionID, isCorrect, r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// GetLogSince returns the entries answered at or after since, joined with
// their question and category, oldest first
func (r *LearningLogRepository) GetLogSince(ctx context.Context, userID string, since time.Time) ([]models.LogEntryDetail, error) {
	query := DB.Rebind(`
		SELECT l.id, l.user_id, l.question_id, l.is_correct, l.answered_at,
			q.question_text, q.category_id, c.name AS category_name
		FROM learning_log l
		JOIN questions q ON q.id = l.question_id
		JOIN categories c ON c.id = q.category_id
		WHERE l.user_id = ? AND l.answered_at >= ?
		ORDER BY l.answered_at, l.id
	`)

	entries := []models.LogEntryDetail{}
	if err := DB.SelectContext(ctx, &entries, query, userID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to get learning log: %w", err)
	}
	return entries, nil
}

// GetTodaysLog returns the entries answered since local midnight
func (r *LearningLogRepository) GetTodaysLog(ctx context.Context, userID string) ([]models.LogEntryDetail, error) {
	return r.GetLogSince(ctx, userID, StartOfDay(r.now()))
}

// StartOfDay returns midnight of t's day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
