// Package content manages the question bank: adding, editing and deleting
// questions and keeping category names unique.
package content

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/example/studyquiz/internal/database"
	"github.com/example/studyquiz/pkg/models"
	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrMissingField = errors.New("question text, correct answer and category are required")
	ErrInvalidType  = errors.New("question type must be multiple_choice or short_answer")
)

// CategoryStore is the category data access used by the service
type CategoryStore interface {
	FindOrCreate(ctx context.Context, name string) (models.Category, error)
	List(ctx context.Context, populatedOnly bool) ([]models.Category, error)
}

// QuestionStore is the question data access used by the service
type QuestionStore interface {
	GetByID(ctx context.Context, id string) (models.Question, error)
	ListAll(ctx context.Context) ([]models.Question, error)
	Create(ctx context.Context, q *models.Question) error
	Update(ctx context.Context, id string, patch database.QuestionPatch) (models.Question, error)
	Delete(ctx context.Context, id string) error
}

// ImageUploader stores an image and returns its public URL
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// Image is an attached file waiting to be uploaded
type Image struct {
	Data     []byte
	Filename string
}

// QuestionForm is the input for a new question
type QuestionForm struct {
	CategoryName  string              `json:"category_name" form:"category_name"`
	Type          models.QuestionType `json:"type" form:"type"`
	Text          string              `json:"question_text" form:"question_text"`
	CorrectAnswer string              `json:"correct_answer" form:"correct_answer"`
	Options       []string            `json:"options" form:"options"`
	ImageURL      string              `json:"image_url" form:"image_url"`
}

// EditForm is a partial update. Nil fields are left unchanged.
type EditForm struct {
	CategoryName  *string              `json:"category_name"`
	Type          *models.QuestionType `json:"type"`
	Text          *string              `json:"question_text"`
	CorrectAnswer *string              `json:"correct_answer"`
	Options       *[]string            `json:"options"`
	ImageURL      *string              `json:"image_url"`
}

// Service implements content management on top of the stores
type Service struct {
	categories CategoryStore
	questions  QuestionStore
	images     ImageUploader
	policy     *bluemonday.Policy
}

// NewService creates a content service. images may be nil, in which case
// saves with an attached image fail.
func NewService(categories CategoryStore, questions QuestionStore, images ImageUploader) *Service {
	return &Service{
		categories: categories,
		questions:  questions,
		images:     images,
		policy:     bluemonday.StrictPolicy(),
	}
}

// Sanitize strips markup from user supplied text and trims it
func (s *Service) Sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// ParseOptions splits comma separated form input into options
func ParseOptions(raw string) []string {
	return splitList(raw, ",")
}

func splitList(raw, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NormalizeOptions trims options and drops blanks, duplicates and any
// option equal to the correct answer. Short answer questions get none.
func NormalizeOptions(t models.QuestionType, options []string, correct string) models.StringList {
	out := models.StringList{}
	if t != models.MultipleChoice {
		return out
	}
	seen := map[string]bool{correct: true}
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// AddQuestion validates and stores a new question. An attached image is
// uploaded first; if that fails nothing is saved.
func (s *Service) AddQuestion(ctx context.Context, form QuestionForm, image *Image) (models.Question, error) {
	text := s.Sanitize(form.Text)
	correct := s.Sanitize(form.CorrectAnswer)
	categoryName := s.Sanitize(form.CategoryName)
	if text == "" || correct == "" || categoryName == "" {
		return models.Question{}, ErrMissingField
	}

	qType := form.Type
	if qType == "" {
		qType = models.MultipleChoice
	}
	if !qType.Valid() {
		return models.Question{}, ErrInvalidType
	}

	category, err := s.categories.FindOrCreate(ctx, categoryName)
	if err != nil {
		return models.Question{}, err
	}

	imageURL := strings.TrimSpace(form.ImageURL)
	if image != nil {
		if imageURL, err = s.upload(ctx, image); err != nil {
			return models.Question{}, err
		}
	}

	options := make([]string, 0, len(form.Options))
	for _, o := range form.Options {
		options = append(options, s.Sanitize(o))
	}

	q := models.Question{
		CategoryID:    category.ID,
		Type:          qType,
		Text:          text,
		ImageURL:      imageURL,
		CorrectAnswer: correct,
		Options:       NormalizeOptions(qType, options, correct),
	}
	if err := s.questions.Create(ctx, &q); err != nil {
		return models.Question{}, err
	}

	log.Printf("Added %s question %s to category %q", q.Type, q.ID, category.Name)
	return q, nil
}

// EditQuestion applies a partial update. Options are recomputed against the
// resulting type and correct answer whenever any of them change.
func (s *Service) EditQuestion(ctx context.Context, id string, form EditForm, image *Image) (models.Question, error) {
	current, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return models.Question{}, err
	}

	var patch database.QuestionPatch

	if form.Text != nil {
		text := s.Sanitize(*form.Text)
		if text == "" {
			return models.Question{}, ErrMissingField
		}
		patch.Text = &text
	}

	correct := current.CorrectAnswer
	if form.CorrectAnswer != nil {
		correct = s.Sanitize(*form.CorrectAnswer)
		if correct == "" {
			return models.Question{}, ErrMissingField
		}
		patch.CorrectAnswer = &correct
	}

	qType := current.Type
	if form.Type != nil {
		if !form.Type.Valid() {
			return models.Question{}, ErrInvalidType
		}
		qType = *form.Type
		patch.Type = &qType
	}

	if form.CategoryName != nil {
		name := s.Sanitize(*form.CategoryName)
		if name == "" {
			return models.Question{}, ErrMissingField
		}
		category, err := s.categories.FindOrCreate(ctx, name)
		if err != nil {
			return models.Question{}, err
		}
		patch.CategoryID = &category.ID
	}

	if form.Options != nil || form.Type != nil || form.CorrectAnswer != nil {
		raw := []string(current.Options)
		if form.Options != nil {
			raw = make([]string, 0, len(*form.Options))
			for _, o := range *form.Options {
				raw = append(raw, s.Sanitize(o))
			}
		}
		options := NormalizeOptions(qType, raw, correct)
		patch.Options = &options
	}

	if form.ImageURL != nil {
		url := strings.TrimSpace(*form.ImageURL)
		patch.ImageURL = &url
	}
	if image != nil {
		url, err := s.upload(ctx, image)
		if err != nil {
			return models.Question{}, err
		}
		patch.ImageURL = &url
	}

	return s.questions.Update(ctx, id, patch)
}

func (s *Service) upload(ctx context.Context, image *Image) (string, error) {
	if s.images == nil {
		return "", errors.New("image storage is not configured")
	}
	url, err := s.images.Upload(ctx, image.Data, image.Filename)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	return url, nil
}

// UploadImage stores a standalone image and returns its URL
func (s *Service) UploadImage(ctx context.Context, image Image) (string, error) {
	return s.upload(ctx, &image)
}

// DeleteQuestion removes a question and its log entries
func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Deleted question %s", id)
	return nil
}

// ListQuestions returns every question, newest first
func (s *Service) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.questions.ListAll(ctx)
}

// ListCategories returns categories ordered by name
func (s *Service) ListCategories(ctx context.Context, populatedOnly bool) ([]models.Category, error) {
	return s.categories.List(ctx, populatedOnly)
}
