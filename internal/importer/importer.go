package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/studyquiz/internal/content"
	"github.com/example/studyquiz/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// CategoryStore resolves category names to ids
type CategoryStore interface {
	FindOrCreate(ctx context.Context, name string) (models.Category, error)
}

// QuestionStore inserts a batch of questions
type QuestionStore interface {
	BulkCreate(ctx context.Context, questions []models.Question) error
}

// Config defines where each field lives in the sheet
type Config struct {
	CategoryColumn string // Column with the category name
	TypeColumn     string // Column with the question type
	QuestionColumn string // Column with the question text
	AnswerColumn   string // Column with the correct answer
	OptionsColumn  string // Column with the distractors
	SheetName      string // Sheet to import, first sheet when empty
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultConfig matches the header
// category_name,type,question_text,correct_answer,options
func DefaultConfig() Config {
	return Config{
		CategoryColumn: "A",
		TypeColumn:     "B",
		QuestionColumn: "C",
		AnswerColumn:   "D",
		OptionsColumn:  "E",
		StartRow:       2, // skip header
	}
}

// Result holds the outcome of an import
type Result struct {
	Processed int      `json:"processed"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// Importer turns spreadsheet rows into questions
type Importer struct {
	categories CategoryStore
	questions  QuestionStore
}

// New creates an importer
func New(categories CategoryStore, questions QuestionStore) *Importer {
	return &Importer{categories: categories, questions: questions}
}

// ImportFile imports questions from a CSV or XLSX file on disk
func (im *Importer) ImportFile(ctx context.Context, path string, cfg Config) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, filepath.Base(path), cfg)
}

// Import picks the parser from the file extension
func (im *Importer) Import(ctx context.Context, r io.Reader, filename string, cfg Config) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return im.ImportCSV(ctx, r, cfg)
	case ".xlsx", ".xlsm":
		return im.ImportXLSX(ctx, r, cfg)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ImportCSV imports questions from CSV. Quoted fields may contain commas.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, cfg Config) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return im.importRows(ctx, rows, cfg)
}

// ImportXLSX imports questions from an Excel workbook
func (im *Importer) ImportXLSX(ctx context.Context, r io.Reader, cfg Config) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return im.importRows(ctx, rows, cfg)
}

func (im *Importer) importRows(ctx context.Context, rows [][]string, cfg Config) (*Result, error) {
	result := &Result{Errors: make([]string, 0)}
	categoryIDs := make(map[string]string)
	var questions []models.Question

	for i, row := range rows {
		// Skip header rows
		if i < cfg.StartRow-1 || blank(row) {
			continue
		}
		result.Processed++

		q, err := im.processRow(ctx, row, cfg, categoryIDs)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) > 0 {
		if err := im.questions.BulkCreate(ctx, questions); err != nil {
			return result, fmt.Errorf("failed to import questions: %w", err)
		}
	}
	result.Imported = len(questions)

	log.Printf("Import finished: %d processed, %d imported, %d skipped",
		result.Processed, result.Imported, result.Skipped)
	return result, nil
}

func (im *Importer) processRow(ctx context.Context, row []string, cfg Config, categoryIDs map[string]string) (models.Question, error) {
	categoryName := cell(row, cfg.CategoryColumn)
	typeName := strings.ToLower(cell(row, cfg.TypeColumn))
	text := cell(row, cfg.QuestionColumn)
	correct := cell(row, cfg.AnswerColumn)
	rawOptions := cell(row, cfg.OptionsColumn)

	if categoryName == "" || typeName == "" || text == "" || correct == "" {
		return models.Question{}, errors.New("missing required field")
	}

	qType := models.QuestionType(typeName)
	if !qType.Valid() {
		return models.Question{}, fmt.Errorf("unknown question type %q", typeName)
	}

	categoryID, err := im.getOrCreateCategory(ctx, categoryName, categoryIDs)
	if err != nil {
		return models.Question{}, err
	}

	return models.Question{
		CategoryID:    categoryID,
		Type:          qType,
		Text:          text,
		CorrectAnswer: correct,
		Options:       content.NormalizeOptions(qType, SplitOptions(rawOptions), correct),
	}, nil
}

// getOrCreateCategory resolves a category once per import
func (im *Importer) getOrCreateCategory(ctx context.Context, name string, categoryIDs map[string]string) (string, error) {
	if id, ok := categoryIDs[name]; ok {
		return id, nil
	}
	c, err := im.categories.FindOrCreate(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to process category: %w", err)
	}
	categoryIDs[name] = c.ID
	return c.ID, nil
}

// SplitOptions splits the options cell on semicolons. A cell without any
// semicolon is split on commas instead.
func SplitOptions(raw string) []string {
	sep := ";"
	if !strings.Contains(raw, ";") {
		sep = ","
	}
	out := []string{}
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
