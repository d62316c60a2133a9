package database

import (
	"context"
	"testing"

	"github.com/example/studyquiz/pkg/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if err := Connect(Config{Driver: DriverSQLite, DSN: ":memory:"}); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		Close()
		DB = nil
	})
}

func mustCategory(t *testing.T, name string) models.Category {
	t.Helper()
	c, err := NewCategoryRepository().FindOrCreate(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to create category %q: %v", name, err)
	}
	return c
}

func mustQuestion(t *testing.T, q models.Question) models.Question {
	t.Helper()
	if err := NewQuestionRepository().Create(context.Background(), &q); err != nil {
		t.Fatalf("failed to create question: %v", err)
	}
	return q
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(Config{Driver: DriverPostgres}); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	setupTestDB(t)
	if err := initializeSchema(); err != nil {
		t.Fatalf("second schema run failed: %v", err)
	}
}
