package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// ProfileRepository handles database operations for display profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = "id, principal_id, full_name, email, avatar, provider, created_at"

// GetByPrincipalID retrieves the profile attached to a principal
func (r *ProfileRepository) GetByPrincipalID(principalID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE principal_id = ?"
	profile := &models.Profile{}
	err := r.db.QueryRow(query, principalID).Scan(
		&profile.ID,
		&profile.PrincipalID,
		&profile.FullName,
		&profile.Email,
		&profile.Avatar,
		&profile.Provider,
		&profile.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Create inserts a profile for a principal. The principal_id unique
// constraint guarantees at most one profile per principal; a losing racer
// gets ErrDuplicate.
func (r *ProfileRepository) Create(principalID int64, fullName, email, avatar, provider string) (*models.Profile, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO profiles (id, principal_id, full_name, email, avatar, provider)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, id, principalID, fullName, email, avatar, provider); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &models.Profile{
		ID:          id,
		PrincipalID: principalID,
		FullName:    fullName,
		Email:       email,
		Avatar:      avatar,
		Provider:    provider,
		CreatedAt:   time.Now(),
	}, nil
}

// UpdateFromSocial overwrites the display fields from a social-login payload.
// Last login wins; local edits are not merged.
func (r *ProfileRepository) UpdateFromSocial(principalID int64, fullName, email, avatar, provider string) error {
	query := `
		UPDATE profiles
		SET full_name = ?, email = ?, avatar = ?, provider = ?
		WHERE principal_id = ?
	`
	if _, err := r.db.Exec(query, fullName, email, avatar, provider, principalID); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
