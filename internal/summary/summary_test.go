package summary

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/example/studyquiz/pkg/models"
)

func entry(qid, catID, catName string, correct bool) models.LogEntryDetail {
	return models.LogEntryDetail{
		LogEntry:     models.LogEntry{QuestionID: qid, IsCorrect: correct},
		QuestionText: "text " + qid,
		CategoryID:   catID,
		CategoryName: catName,
	}
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil)
	if !s.Empty() || s.Accuracy != 0 || s.EstimatedMinutes != 0 {
		t.Fatalf("unexpected empty summary %+v", s)
	}
	if s.Categories == nil || s.Entries == nil {
		t.Fatal("expected non-nil slices for JSON output")
	}
}

func TestBuild(t *testing.T) {
	s := Build([]models.LogEntryDetail{
		entry("q1", "c2", "Geography", true),
		entry("q2", "c1", "Chemistry", false),
		entry("q3", "c2", "Geography", true),
	})

	if s.Total != 3 || s.Correct != 2 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.Accuracy != 67 {
		t.Errorf("expected 67%% accuracy, got %d", s.Accuracy)
	}
	if s.EstimatedMinutes != 2 {
		t.Errorf("expected 2 minutes, got %d", s.EstimatedMinutes)
	}
	if !reflect.DeepEqual(s.Categories, []string{"Geography", "Chemistry"}) {
		t.Errorf("unexpected categories %v", s.Categories)
	}
	if len(s.Entries) != 3 || s.Entries[1].QuestionText != "text q2" || s.Entries[1].IsCorrect {
		t.Errorf("unexpected entries %+v", s.Entries)
	}
}

func TestEstimatedMinutesRoundsUp(t *testing.T) {
	tests := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 10: 5}
	for n, want := range tests {
		entries := make([]models.LogEntryDetail, n)
		if got := Build(entries).EstimatedMinutes; got != want {
			t.Errorf("%d questions: expected %d minutes, got %d", n, want, got)
		}
	}
}

type fakeLogs struct {
	entries []models.LogEntryDetail
	err     error
	userID  string
}

func (f *fakeLogs) GetTodaysLog(ctx context.Context, userID string) ([]models.LogEntryDetail, error) {
	f.userID = userID
	return f.entries, f.err
}

func TestServiceToday(t *testing.T) {
	logs := &fakeLogs{entries: []models.LogEntryDetail{entry("q1", "c1", "Art", true)}}
	s, err := NewService(logs).Today(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if logs.userID != "user-1" {
		t.Errorf("expected user-1, got %q", logs.userID)
	}
	if s.Total != 1 || s.Accuracy != 100 {
		t.Errorf("unexpected summary %+v", s)
	}

	logs.err = errors.New("db down")
	if _, err := NewService(logs).Today(context.Background(), "user-1"); !errors.Is(err, logs.err) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
