// Package summary aggregates the day's learning log.
package summary

import (
	"context"
	"fmt"
	"math"

	"github.com/example/studyquiz/pkg/models"
)

// SecondsPerQuestion is the time budget used to estimate study time
const SecondsPerQuestion = 30

// LogSource loads today's log entries for a user
type LogSource interface {
	GetTodaysLog(ctx context.Context, userID string) ([]models.LogEntryDetail, error)
}

// Entry is one answered question in the summary
type Entry struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	CategoryName string `json:"category_name"`
	IsCorrect    bool   `json:"is_correct"`
}

// Summary is the day's study overview
type Summary struct {
	Total            int      `json:"total"`
	Correct          int      `json:"correct"`
	Accuracy         int      `json:"accuracy"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Categories       []string `json:"categories"`
	Entries          []Entry  `json:"entries"`
}

// Empty reports whether nothing was studied
func (s Summary) Empty() bool { return s.Total == 0 }

// Build aggregates log entries. Categories keep first-seen order.
func Build(entries []models.LogEntryDetail) Summary {
	s := Summary{
		Categories: []string{},
		Entries:    make([]Entry, 0, len(entries)),
	}
	seen := make(map[string]bool)

	for _, e := range entries {
		s.Total++
		if e.IsCorrect {
			s.Correct++
		}
		if e.CategoryName != "" && !seen[e.CategoryID] {
			seen[e.CategoryID] = true
			s.Categories = append(s.Categories, e.CategoryName)
		}
		s.Entries = append(s.Entries, Entry{
			QuestionID:   e.QuestionID,
			QuestionText: e.QuestionText,
			CategoryName: e.CategoryName,
			IsCorrect:    e.IsCorrect,
		})
	}

	if s.Total > 0 {
		s.Accuracy = int(math.Round(float64(s.Correct) * 100 / float64(s.Total)))
		s.EstimatedMinutes = int(math.Ceil(float64(s.Total*SecondsPerQuestion) / 60))
	}
	return s
}

// Service builds summaries from the learning log
type Service struct {
	logs LogSource
}

// NewService creates a summary service
func NewService(logs LogSource) *Service {
	return &Service{logs: logs}
}

// Today returns the summary of everything userID answered today
func (s *Service) Today(ctx context.Context, userID string) (Summary, error) {
	entries, err := s.logs.GetTodaysLog(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load today's log: %w", err)
	}
	return Build(entries), nil
}
