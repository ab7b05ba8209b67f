package repository

import (
	"database/sql"
	"fmt"
	"time"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	db *database.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the category with the given name, creating it if absent
func (r *CategoryRepository) GetOrCreate(name string) (*models.Category, error) {
	existing, err := r.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id, err := r.db.ExecReturningID("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			// Lost a create race; the row exists now
			return r.GetByName(name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return &models.Category{ID: id, Name: name, CreatedAt: time.Now()}, nil
}

// GetByName retrieves a category by name
func (r *CategoryRepository) GetByName(name string) (*models.Category, error) {
	query := "SELECT id, name, created_at FROM categories WHERE name = ?"
	return r.scanOne(r.db.QueryRow(query, name))
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(id int64) (*models.Category, error) {
	query := "SELECT id, name, created_at FROM categories WHERE id = ?"
	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *CategoryRepository) scanOne(row *sql.Row) (*models.Category, error) {
	category := &models.Category{}
	err := row.Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// Rename updates a category's name
func (r *CategoryRepository) Rename(id int64, name string) error {
	result, err := r.db.Exec("UPDATE categories SET name = ? WHERE id = ?", name, id)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to rename category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rename result: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a category (posts cascade via foreign key)
func (r *CategoryRepository) Delete(id int64) error {
	if _, err := r.db.Exec("DELETE FROM categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// GetAll retrieves all categories ordered by name
func (r *CategoryRepository) GetAll() ([]models.Category, error) {
	rows, err := r.db.Query("SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}
