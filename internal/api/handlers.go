package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/studyquiz/internal/content"
	"github.com/example/studyquiz/internal/database"
	"github.com/example/studyquiz/internal/importer"
	"github.com/example/studyquiz/internal/summary"
	"github.com/example/studyquiz/pkg/models"
	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds images and import files
const maxUploadSize = 10 << 20

// ContentService manages the question bank
type ContentService interface {
	AddQuestion(ctx context.Context, form content.QuestionForm, image *content.Image) (models.Question, error)
	EditQuestion(ctx context.Context, id string, form content.EditForm, image *content.Image) (models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context) ([]models.Question, error)
	ListCategories(ctx context.Context, populatedOnly bool) ([]models.Category, error)
	UploadImage(ctx context.Context, image content.Image) (string, error)
}

// QuestionReader lists questions for study
type QuestionReader interface {
	ListByCategory(ctx context.Context, categoryID string, limit int, typeFilter models.QuestionType) ([]models.Question, error)
	ListIncorrect(ctx context.Context, userID string) ([]models.Question, error)
}

// Importer bulk loads questions from a spreadsheet
type Importer interface {
	Import(ctx context.Context, r io.Reader, filename string, cfg importer.Config) (*importer.Result, error)
}

// SummaryService builds today's summary
type SummaryService interface {
	Today(ctx context.Context, userID string) (summary.Summary, error)
}

// OutcomeRecorder stores one graded answer
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, userID, questionID string, isCorrect bool) error
}

// Pinger checks the database connection
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the JSON API for the configured user
type Handler struct {
	content   ContentService
	questions QuestionReader
	importer  Importer
	summaries SummaryService
	outcomes  OutcomeRecorder
	db        Pinger
	userID    string
}

// NewHandler creates the API handler
func NewHandler(contentSvc ContentService, questions QuestionReader, imp Importer, summaries SummaryService, outcomes OutcomeRecorder, db Pinger, userID string) *Handler {
	return &Handler{
		content:   contentSvc,
		questions: questions,
		importer:  imp,
		summaries: summaries,
		outcomes:  outcomes,
		db:        db,
		userID:    userID,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "Database connection failed",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) GetCategories(c *gin.Context) {
	populated, _ := strconv.ParseBool(c.DefaultQuery("populated", "false"))
	categories, err := h.content.ListCategories(c.Request.Context(), populated)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) GetQuestions(c *gin.Context) {
	questions, err := h.content.ListQuestions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *Handler) GetCategoryQuestions(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	typeFilter := models.QuestionType(c.Query("type"))
	if typeFilter != "" && !typeFilter.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": content.ErrInvalidType.Error()})
		return
	}

	questions, err := h.questions.ListByCategory(c.Request.Context(), c.Param("id"), limit, typeFilter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *Handler) GetIncorrect(c *gin.Context) {
	questions, err := h.questions.ListIncorrect(c.Request.Context(), h.userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *Handler) CreateQuestion(c *gin.Context) {
	var form content.QuestionForm
	var image *content.Image

	if isMultipart(c) {
		form = content.QuestionForm{
			CategoryName:  c.PostForm("category_name"),
			Type:          models.QuestionType(c.PostForm("type")),
			Text:          c.PostForm("question_text"),
			CorrectAnswer: c.PostForm("correct_answer"),
			Options:       content.ParseOptions(c.PostForm("options")),
		}
		var err error
		if image, err = formImage(c, "image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.content.AddQuestion(c.Request.Context(), form, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	var form content.EditForm
	var image *content.Image

	if isMultipart(c) {
		if v, ok := c.GetPostForm("category_name"); ok {
			form.CategoryName = &v
		}
		if v, ok := c.GetPostForm("type"); ok {
			t := models.QuestionType(v)
			form.Type = &t
		}
		if v, ok := c.GetPostForm("question_text"); ok {
			form.Text = &v
		}
		if v, ok := c.GetPostForm("correct_answer"); ok {
			form.CorrectAnswer = &v
		}
		if v, ok := c.GetPostForm("options"); ok {
			options := content.ParseOptions(v)
			form.Options = &options
		}
		var err error
		if image, err = formImage(c, "image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.content.EditQuestion(c.Request.Context(), c.Param("id"), form, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.content.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ImportQuestions(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.importer.Import(c.Request.Context(), bytes.NewReader(data), fh.Filename, importer.DefaultConfig())
	if err != nil {
		if result != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UploadImage(c *gin.Context) {
	image, err := formImage(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	url, err := h.content.UploadImage(c.Request.Context(), *image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"public_url": url})
}

func (h *Handler) GetTodaySummary(c *gin.Context) {
	s, err := h.summaries.Today(c.Request.Context(), h.userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type outcomeRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	IsCorrect  *bool  `json:"is_correct" binding:"required"`
}

func (h *Handler) RecordOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.outcomes.RecordOutcome(c.Request.Context(), h.userID, req.QuestionID, *req.IsCorrect); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImage returns nil when no file was attached under field
func formImage(c *gin.Context, field string) (*content.Image, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	return &content.Image{Data: data, Filename: fh.Filename}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadSize {
		return nil, errors.New("file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, content.ErrMissingField),
		errors.Is(err, content.ErrInvalidType),
		errors.Is(err, importer.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("API error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
