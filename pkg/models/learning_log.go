package models

import "time"

// LogEntry is the latest recorded outcome for one (user, question) pair
type LogEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	IsCorrect  bool      `json:"is_correct" db:"is_correct"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}

// LogEntryDetail is a log entry joined with its question and category
type LogEntryDetail struct {
	LogEntry
	QuestionText string `json:"question_text" db:"question_text"`
	CategoryID   string `json:"category_id" db:"category_id"`
	CategoryName string `json:"category_name" db:"category_name"`
}
