package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
// Uniqueness is enforced at the store level so concurrent creates race safely.
var ErrDuplicate = errors.New("duplicate identifier")

// CredentialRepository handles database operations for signup credentials
type CredentialRepository struct {
	db *database.DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a new credential. Returns ErrDuplicate when the username or
// email is already taken, relying on the unique constraints rather than a
// pre-check.
func (r *CredentialRepository) Create(username, email, passwordHash string) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (username, email, password_hash)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, username, email, passwordHash)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return &models.Credential{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

const credentialColumns = `
	id, username, email, password_hash, created_at,
	COALESCE(reset_token, ''), reset_token_expiry
`

func (r *CredentialRepository) scanOne(row *sql.Row) (*models.Credential, error) {
	cred := &models.Credential{}
	var expiry sql.NullTime
	err := row.Scan(
		&cred.ID,
		&cred.Username,
		&cred.Email,
		&cred.PasswordHash,
		&cred.CreatedAt,
		&cred.ResetToken,
		&expiry,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if expiry.Valid {
		cred.ResetTokenExpiry = &expiry.Time
	}
	return cred, nil
}

// GetByUsername retrieves a credential by username
func (r *CredentialRepository) GetByUsername(username string) (*models.Credential, error) {
	query := "SELECT " + credentialColumns + " FROM credentials WHERE username = ?"
	return r.scanOne(r.db.QueryRow(query, username))
}

// GetByEmail retrieves a credential by email address
func (r *CredentialRepository) GetByEmail(email string) (*models.Credential, error) {
	query := "SELECT " + credentialColumns + " FROM credentials WHERE email = ?"
	return r.scanOne(r.db.QueryRow(query, email))
}

// GetByUsernameOrEmail tries a username match first, then an email match.
func (r *CredentialRepository) GetByUsernameOrEmail(identifier string) (*models.Credential, error) {
	cred, err := r.GetByUsername(identifier)
	if err != nil || cred != nil {
		return cred, err
	}
	return r.GetByEmail(identifier)
}

// GetByResetToken retrieves a credential holding the given reset token,
// regardless of expiry. Expiry is checked by the caller against its clock.
func (r *CredentialRepository) GetByResetToken(token string) (*models.Credential, error) {
	query := "SELECT " + credentialColumns + " FROM credentials WHERE reset_token = ?"
	return r.scanOne(r.db.QueryRow(query, token))
}

// SetResetToken stores a pending reset token and its expiry on a credential
func (r *CredentialRepository) SetResetToken(id int64, token string, expiry time.Time) error {
	query := "UPDATE credentials SET reset_token = ?, reset_token_expiry = ? WHERE id = ?"
	if _, err := r.db.Exec(query, token, expiry, id); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

// ClearExpiredResetTokens nulls out reset tokens whose expiry has passed
func (r *CredentialRepository) ClearExpiredResetTokens(now time.Time) error {
	query := `
		UPDATE credentials
		SET reset_token = NULL, reset_token_expiry = NULL
		WHERE reset_token_expiry IS NOT NULL AND reset_token_expiry < ?
	`
	if _, err := r.db.Exec(query, now); err != nil {
		return fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return nil
}

// UpdatePasswordAndClearToken re-hashes the password and clears the pending
// reset token in a single statement, making the token single-use.
func (r *CredentialRepository) UpdatePasswordAndClearToken(id int64, passwordHash string) error {
	query := `
		UPDATE credentials
		SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GetAll retrieves all credentials, newest first (dashboard user listing)
func (r *CredentialRepository) GetAll() ([]models.Credential, error) {
	query := "SELECT " + credentialColumns + " FROM credentials ORDER BY created_at DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.Credential
	for rows.Next() {
		var cred models.Credential
		var expiry sql.NullTime
		if err := rows.Scan(
			&cred.ID,
			&cred.Username,
			&cred.Email,
			&cred.PasswordHash,
			&cred.CreatedAt,
			&cred.ResetToken,
			&expiry,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		if expiry.Valid {
			cred.ResetTokenExpiry = &expiry.Time
		}
		creds = append(creds, cred)
	}

	return creds, rows.Err()
}
