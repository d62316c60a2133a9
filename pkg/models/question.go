package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType is the way a question is answered
type QuestionType string

const (
	// MultipleChoice questions show the distractors plus the correct answer
	MultipleChoice QuestionType = "multiple_choice"
	// ShortAnswer questions are answered by typing free text
	ShortAnswer QuestionType = "short_answer"
)

// Valid reports whether t is one of the known question types
func (t QuestionType) Valid() bool {
	return t == MultipleChoice || t == ShortAnswer
}

// Question is a single quiz item owned by a category
type Question struct {
	ID            string       `json:"id" db:"id"`
	CategoryID    string       `json:"category_id" db:"category_id"`
	Type          QuestionType `json:"type" db:"type"`
	Text          string       `json:"question_text" db:"question_text"`
	ImageURL      string       `json:"image_url,omitempty" db:"image_url"`
	CorrectAnswer string       `json:"correct_answer" db:"correct_answer"`
	Options       StringList   `json:"options" db:"options"` // distractors only, for multiple choice
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// StringList is stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type for StringList: %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to parse options: %w", err)
	}
	*l = out
	return nil
}
