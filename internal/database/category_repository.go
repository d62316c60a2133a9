package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/studyquiz/pkg/models"
	"github.com/google/uuid"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct{}

// NewCategoryRepository creates a new repository instance
func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

// List returns categories ordered by name. With populatedOnly set, only
// categories that own at least one question are returned.
func (r *CategoryRepository) List(ctx context.Context, populatedOnly bool) ([]models.Category, error) {
	query := "SELECT id, name, created_at FROM categories c"
	if populatedOnly {
		query += " WHERE EXISTS (SELECT 1 FROM questions q WHERE q.category_id = c.id)"
	}
	query += " ORDER BY name"

	categories := []models.Category{}
	if err := DB.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetByName returns the category with exactly this name
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (models.Category, error) {
	var c models.Category
	query := DB.Rebind("SELECT id, name, created_at FROM categories WHERE name = ?")
	err := DB.GetContext(ctx, &c, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

// FindOrCreate returns the category with this name, creating it if needed.
// A concurrent insert of the same name is resolved by the UNIQUE constraint
// and a second lookup.
func (r *CategoryRepository) FindOrCreate(ctx context.Context, name string) (models.Category, error) {
	c, err := r.GetByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Category{}, err
	}

	c = models.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	query := DB.Rebind("INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)")
	if _, insertErr := DB.ExecContext(ctx, query, c.ID, c.Name, c.CreatedAt); insertErr != nil {
		existing, err := r.GetByName(ctx, name)
		if err != nil {
			return models.Category{}, fmt.Errorf("failed to create category: %w", insertErr)
		}
		return existing, nil
	}
	return c, nil
}
