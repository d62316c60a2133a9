package quiz

import (
	"context"
	"fmt"

	"github.com/example/studyquiz/internal/shuffle"
	"github.com/example/studyquiz/pkg/models"
)

const (
	// DefaultQuestionCount is used when a quiz is started without a count
	DefaultQuestionCount = 10
	// MaxQuestionCount caps the number of questions in a quiz
	MaxQuestionCount = 20
	// FlashcardLength is the number of cards in a flashcard run
	FlashcardLength = 20
)

// QuestionSource is the data access the module needs to start sessions
type QuestionSource interface {
	ListByCategory(ctx context.Context, categoryID string, limit int, typeFilter models.QuestionType) ([]models.Question, error)
	ListIncorrect(ctx context.Context, userID string) ([]models.Question, error)
}

// Module starts quiz and flashcard sessions from stored questions
type Module struct {
	questions QuestionSource
}

// NewModule creates a new study module
func NewModule(questions QuestionSource) *Module {
	return &Module{questions: questions}
}

// ClampCount keeps a requested question count inside the allowed range
func ClampCount(n int) int {
	if n <= 0 {
		return DefaultQuestionCount
	}
	if n > MaxQuestionCount {
		return MaxQuestionCount
	}
	return n
}

// StartQuiz starts a quiz over up to count questions of a category
func (m *Module) StartQuiz(ctx context.Context, userID, categoryID string, count int, sink Sink) (*Session, error) {
	questions, err := m.questions.ListByCategory(ctx, categoryID, ClampCount(count), "")
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}
	return NewSession(ModeQuiz, userID, questions, sink)
}

// StartFlashcards starts a shuffled flashcard run over short answer questions
func (m *Module) StartFlashcards(ctx context.Context, userID, categoryID string, sink Sink) (*Session, error) {
	questions, err := m.questions.ListByCategory(ctx, categoryID, FlashcardLength, models.ShortAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to load flashcards: %w", err)
	}
	return NewSession(ModeFlashcard, userID, shuffle.Shuffle(questions), sink)
}

// StartIncorrectReview starts a quiz over every question last answered wrong
func (m *Module) StartIncorrectReview(ctx context.Context, userID string, sink Sink) (*Session, error) {
	questions, err := m.questions.ListIncorrect(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incorrect questions: %w", err)
	}
	return NewSession(ModeQuiz, userID, shuffle.Shuffle(questions), sink)
}
