package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/example/studyquiz/internal/quiz"
	"github.com/example/studyquiz/pkg/models"
)

func TestBandFor(t *testing.T) {
	tests := map[int]Band{
		100: BandHigh,
		71:  BandHigh,
		70:  BandMedium,
		41:  BandMedium,
		40:  BandLow,
		0:   BandLow,
	}
	for pct, want := range tests {
		if got := BandFor(pct); got != want {
			t.Errorf("BandFor(%d) = %s, want %s", pct, got, want)
		}
	}
}

func hasButton(sc screen, data string) bool {
	for _, row := range sc.Buttons {
		for _, b := range row {
			if b.CallbackData == data {
				return true
			}
		}
	}
	return false
}

func TestRenderResults(t *testing.T) {
	mixed := quiz.Result{Score: 2, Total: 3, Answers: []quiz.Answer{
		{QuestionID: "a", IsCorrect: true},
		{QuestionID: "b", IsCorrect: false},
		{QuestionID: "c", IsCorrect: true},
	}}
	sc := renderResults(mixed, quiz.ModeQuiz)
	if !strings.Contains(sc.Text, "Score: 2 / 3 (67%)") || !strings.Contains(sc.Text, "Incorrect: 1") {
		t.Errorf("unexpected text %q", sc.Text)
	}
	if !hasButton(sc, cbMenuIncorrect) || !hasButton(sc, cbResultsNew) || !hasButton(sc, cbHome) {
		t.Errorf("missing buttons %+v", sc.Buttons)
	}

	perfect := quiz.Result{Score: 1, Total: 1, Answers: []quiz.Answer{{QuestionID: "a", IsCorrect: true}}}
	if hasButton(renderResults(perfect, quiz.ModeQuiz), cbMenuIncorrect) {
		t.Error("review button shown without incorrect answers")
	}
}

func TestRenderQuestion(t *testing.T) {
	q := models.Question{ID: "q", Type: models.MultipleChoice, Text: "Capital of France?", CorrectAnswer: "Paris"}
	snap := quiz.Snapshot{Question: q, Index: 0, Total: 2, Options: []string{"London", "Paris", "Berlin"}}

	st := step{Run: 3, Index: 0}
	sc := renderQuestion(snap, st.Run)
	for i := range snap.Options {
		if !hasButton(sc, stepArg(cbOption, st, i)) {
			t.Errorf("missing option %d", i)
		}
	}

	snap.IsAnswered = true
	snap.SelectedAnswer = "London"
	sc = renderQuestion(snap, st.Run)
	if hasButton(sc, stepArg(cbOption, st, 0)) {
		t.Error("options should be hidden once answered")
	}
	if !strings.Contains(sc.Text, "Correct answer: Paris") || !hasButton(sc, stepData(cbNext, st)) {
		t.Errorf("unexpected feedback %q", sc.Text)
	}
}

func TestParseStepData(t *testing.T) {
	st, arg, err := parseStepData(stepArg(cbGrade, step{Run: 2, Index: 7}, 1), cbGrade)
	if err != nil {
		t.Fatal(err)
	}
	if st != (step{Run: 2, Index: 7}) || arg != "1" {
		t.Errorf("unexpected step %v arg %q", st, arg)
	}

	st, arg, err = parseStepData(stepData(cbNext, step{Run: 1, Index: 0}), cbNext)
	if err != nil || st != (step{Run: 1, Index: 0}) || arg != "" {
		t.Errorf("unexpected step %v arg %q err %v", st, arg, err)
	}

	for _, bad := range []string{"next:", "next:1", "next:a.0", "opt:1.x:2"} {
		if _, _, err := parseStepData(bad, bad[:strings.Index(bad, ":")+1]); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRenderQuestionList(t *testing.T) {
	var questions []models.Question
	for i := 0; i < 200; i++ {
		questions = append(questions, models.Question{
			ID:         fmt.Sprintf("id-%03d", i),
			CategoryID: "geo",
			Type:       models.ShortAnswer,
			Text:       "A reasonably long question text to fill the message",
		})
	}

	sc := renderQuestionList(questions, []models.Category{{ID: "geo", Name: "Geography"}})
	if len(sc.Text) > maxMessageLength {
		t.Fatalf("message too long: %d", len(sc.Text))
	}
	if !strings.Contains(sc.Text, "[Geography]") || !strings.Contains(sc.Text, "more") {
		t.Errorf("unexpected list %q", sc.Text[:200])
	}
}

func TestParseQuestionMessage(t *testing.T) {
	form, err := ParseQuestionMessage(" Math | sa | 2 + 2? | 4 ")
	if err != nil {
		t.Fatal(err)
	}
	if form.CategoryName != "Math" || form.Type != models.ShortAnswer || form.Text != "2 + 2?" || form.CorrectAnswer != "4" {
		t.Errorf("unexpected form %+v", form)
	}

	form, err = ParseQuestionMessage("Geo | multiple_choice | Capital? | Paris | London, Berlin")
	if err != nil {
		t.Fatal(err)
	}
	if len(form.Options) != 2 || form.Options[1] != "Berlin" {
		t.Errorf("unexpected options %v", form.Options)
	}

	for _, bad := range []string{"just text", "a | b | c", "a | xx | c | d", "a | sa | b | c | d | e"} {
		if _, err := ParseQuestionMessage(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRouter(t *testing.T) {
	r := NewRouter()
	if r.View(1) != ViewHome {
		t.Fatal("new chats start at home")
	}

	s, err := quiz.NewSession(quiz.ModeQuiz, "u", []models.Question{{ID: "q", Type: models.ShortAnswer, CorrectAnswer: "a"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Begin(1, ViewQuiz, s)
	if r.Session(1) != s || r.Session(2) != nil {
		t.Fatal("sessions are per chat")
	}
	if r.Run(1) != 1 || r.Run(2) != 0 {
		t.Errorf("unexpected runs %d %d", r.Run(1), r.Run(2))
	}

	r.Navigate(1, ViewSummary)
	if r.Session(1) != nil {
		t.Fatal("navigating away discards the session")
	}
	if r.LastMode(1) != quiz.ModeQuiz {
		t.Error("last mode should survive navigation")
	}

	r.Navigate(1, ViewQuizSetup)
	r.SelectCategory(1, "geo")
	if r.SelectedCategory(1) != "geo" {
		t.Error("category should be remembered in setup")
	}
	r.Navigate(1, ViewHome)
	if r.SelectedCategory(1) != "" {
		t.Error("category should be dropped outside setup")
	}

	r.Finish(1, quiz.Result{Score: 1, Total: 1})
	if res, ok := r.Result(1); !ok || res.Score != 1 || r.View(1) != ViewResults {
		t.Errorf("unexpected results state %+v %v", res, ok)
	}

	r.Touch(3)
	if r.LastActive() != 3 {
		t.Error("last active chat not recorded")
	}
}
