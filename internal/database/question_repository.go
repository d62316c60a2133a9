package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/studyquiz/pkg/models"
	"github.com/google/uuid"
)

const questionColumns = "id, category_id, type, question_text, image_url, correct_answer, options, created_at"

// QuestionRepository handles database operations for questions
type QuestionRepository struct{}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository() *QuestionRepository {
	return &QuestionRepository{}
}

// QuestionPatch is a partial update. Nil fields are left untouched.
type QuestionPatch struct {
	CategoryID    *string
	Type          *models.QuestionType
	Text          *string
	ImageURL      *string
	CorrectAnswer *string
	Options       *models.StringList
}

// Empty reports whether the patch changes nothing
func (p QuestionPatch) Empty() bool {
	return p.CategoryID == nil && p.Type == nil && p.Text == nil &&
		p.ImageURL == nil && p.CorrectAnswer == nil && p.Options == nil
}

// ListByCategory returns questions of a category in insertion order.
// limit <= 0 means no limit; an empty typeFilter matches every type.
func (r *QuestionRepository) ListByCategory(ctx context.Context, categoryID string, limit int, typeFilter models.QuestionType) ([]models.Question, error) {
	query := "SELECT " + questionColumns + " FROM questions WHERE category_id = ?"
	args := []interface{}{categoryID}
	if typeFilter != "" {
		query += " AND type = ?"
		args = append(args, string(typeFilter))
	}
	query += " ORDER BY created_at, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	questions := []models.Question{}
	if err := DB.SelectContext(ctx, &questions, DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ListAll returns every question, newest first
func (r *QuestionRepository) ListAll(ctx context.Context) ([]models.Question, error) {
	questions := []models.Question{}
	query := "SELECT " + questionColumns + " FROM questions ORDER BY created_at DESC, id"
	if err := DB.SelectContext(ctx, &questions, query); err != nil {
		return nil, fmt.Errorf("failed to list all questions: %w", err)
	}
	return questions, nil
}

// ListIncorrect returns the questions whose latest logged outcome for
// userID is incorrect
func (r *QuestionRepository) ListIncorrect(ctx context.Context, userID string) ([]models.Question, error) {
	query := DB.Rebind(`
		SELECT q.id, q.category_id, q.type, q.question_text, q.image_url,
			q.correct_answer, q.options, q.created_at
		FROM questions q
		JOIN learning_log l ON l.question_id = q.id
		WHERE l.user_id = ? AND l.is_correct = ?
		ORDER BY l.answered_at DESC, q.id
	`)

	questions := []models.Question{}
	if err := DB.SelectContext(ctx, &questions, query, userID, false); err != nil {
		return nil, fmt.Errorf("failed to list incorrect questions: %w", err)
	}
	return questions, nil
}

// CountIncorrect returns how many questions are waiting for review
func (r *QuestionRepository) CountIncorrect(ctx context.Context, userID string) (int, error) {
	var n int
	query := DB.Rebind("SELECT COUNT(*) FROM learning_log WHERE user_id = ? AND is_correct = ?")
	if err := DB.GetContext(ctx, &n, query, userID, false); err != nil {
		return 0, fmt.Errorf("failed to count incorrect questions: %w", err)
	}
	return n, nil
}

// GetByID returns a single question
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (models.Question, error) {
	var q models.Question
	query := DB.Rebind("SELECT " + questionColumns + " FROM questions WHERE id = ?")
	err := DB.GetContext(ctx, &q, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Question{}, ErrNotFound
	}
	if err != nil {
		return models.Question{}, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// Create inserts q, assigning an ID and creation time when they are unset
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	return insertQuestion(ctx, DB, q)
}

// BulkCreate inserts all questions in a single transaction
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Spread creation times so insertion order survives ORDER BY created_at
	base := time.Now().UTC()
	for i := range questions {
		if questions[i].CreatedAt.IsZero() {
			questions[i].CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		}
		if err := insertQuestion(ctx, tx, &questions[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

func insertQuestion(ctx context.Context, ex execer, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Options == nil {
		q.Options = models.StringList{}
	}

	query := ex.Rebind(`
		INSERT INTO questions (id, category_id, type, question_text, image_url, correct_answer, options, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := ex.ExecContext(ctx, query,
		q.ID, q.CategoryID, string(q.Type), q.Text, q.ImageURL, q.CorrectAnswer, q.Options, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// Update applies a partial update and returns the stored question
func (r *QuestionRepository) Update(ctx context.Context, id string, patch QuestionPatch) (models.Question, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.Type != nil {
		add("type", string(*patch.Type))
	}
	if patch.Text != nil {
		add("question_text", *patch.Text)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.CorrectAnswer != nil {
		add("correct_answer", *patch.CorrectAnswer)
	}
	if patch.Options != nil {
		add("options", *patch.Options)
	}
	args = append(args, id)

	query := DB.Rebind("UPDATE questions SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := DB.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Question{}, fmt.Errorf("failed to update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Question{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a question and its log entries
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	query := DB.Rebind("DELETE FROM questions WHERE id = ?")
	res, err := DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
