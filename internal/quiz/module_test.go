package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/example/studyquiz/pkg/models"
)

type fakeSource struct {
	questions []models.Question
	incorrect []models.Question
	err       error

	gotLimit  int
	gotType   models.QuestionType
	gotUserID string
}

func (f *fakeSource) ListByCategory(ctx context.Context, categoryID string, limit int, typeFilter models.QuestionType) ([]models.Question, error) {
	f.gotLimit = limit
	f.gotType = typeFilter
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Question
	for _, q := range f.questions {
		if q.CategoryID != categoryID {
			continue
		}
		if typeFilter != "" && q.Type != typeFilter {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) ListIncorrect(ctx context.Context, userID string) ([]models.Question, error) {
	f.gotUserID = userID
	return f.incorrect, f.err
}

func TestClampCount(t *testing.T) {
	tests := map[int]int{0: 10, -3: 10, 1: 1, 15: 15, 20: 20, 50: 20}
	for in, want := range tests {
		if got := ClampCount(in); got != want {
			t.Errorf("ClampCount(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestStartQuizKeepsStoredOrder(t *testing.T) {
	src := &fakeSource{questions: []models.Question{
		mcQuestion("q1", "a", "b"),
		saQuestion("q2", "c"),
		mcQuestion("q3", "d", "e"),
	}}
	m := NewModule(src)

	s, err := m.StartQuiz(context.Background(), "u", "cat", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if src.gotLimit != DefaultQuestionCount || src.gotType != "" {
		t.Errorf("unexpected query limit=%d type=%q", src.gotLimit, src.gotType)
	}
	if s.Mode() != ModeQuiz {
		t.Errorf("expected quiz mode, got %s", s.Mode())
	}
	for _, want := range []string{"q1", "q2", "q3"} {
		q, _ := s.CurrentQuestion()
		if q.ID != want {
			t.Fatalf("expected %s, got %s", want, q.ID)
		}
		if q.Type == models.ShortAnswer {
			s.SubmitAnswer("x")
		} else {
			s.SubmitAnswer(q.CorrectAnswer)
		}
		s.Advance()
	}
}

func TestStartQuizCapsCount(t *testing.T) {
	src := &fakeSource{questions: []models.Question{saQuestion("q1", "a")}}
	if _, err := NewModule(src).StartQuiz(context.Background(), "u", "cat", 100, nil); err != nil {
		t.Fatal(err)
	}
	if src.gotLimit != MaxQuestionCount {
		t.Errorf("expected limit %d, got %d", MaxQuestionCount, src.gotLimit)
	}
}

func TestStartQuizEmptyCategory(t *testing.T) {
	m := NewModule(&fakeSource{})
	if _, err := m.StartQuiz(context.Background(), "u", "empty", 5, nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStartQuizLoadError(t *testing.T) {
	loadErr := errors.New("db down")
	m := NewModule(&fakeSource{err: loadErr})
	if _, err := m.StartQuiz(context.Background(), "u", "cat", 5, nil); !errors.Is(err, loadErr) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
}

func TestStartFlashcardsShortAnswerOnly(t *testing.T) {
	src := &fakeSource{questions: []models.Question{
		mcQuestion("q1", "a", "b"),
		saQuestion("q2", "c"),
		saQuestion("q3", "d"),
	}}
	s, err := NewModule(src).StartFlashcards(context.Background(), "u", "cat", nil)
	if err != nil {
		t.Fatal(err)
	}
	if src.gotType != models.ShortAnswer || src.gotLimit != FlashcardLength {
		t.Errorf("unexpected query limit=%d type=%q", src.gotLimit, src.gotType)
	}
	if s.Mode() != ModeFlashcard {
		t.Errorf("expected flashcard mode, got %s", s.Mode())
	}
	if total := s.Snapshot().Total; total != 2 {
		t.Errorf("expected 2 cards, got %d", total)
	}
}

func TestStartFlashcardsNoShortAnswers(t *testing.T) {
	src := &fakeSource{questions: []models.Question{mcQuestion("q1", "a", "b")}}
	if _, err := NewModule(src).StartFlashcards(context.Background(), "u", "cat", nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStartIncorrectReview(t *testing.T) {
	src := &fakeSource{incorrect: []models.Question{saQuestion("q1", "a"), mcQuestion("q2", "b", "c")}}
	s, err := NewModule(src).StartIncorrectReview(context.Background(), "user-9", nil)
	if err != nil {
		t.Fatal(err)
	}
	if src.gotUserID != "user-9" {
		t.Errorf("expected user-9, got %q", src.gotUserID)
	}
	if s.Mode() != ModeQuiz || s.Snapshot().Total != 2 {
		t.Errorf("unexpected session %+v", s.Snapshot())
	}
}

func TestStartIncorrectReviewEmpty(t *testing.T) {
	_, err := NewModule(&fakeSource{}).StartIncorrectReview(context.Background(), "u", nil)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}
