package repository

import (
	"database/sql"
	"fmt"
	"time"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// PrincipalRepository handles database operations for session principals
// and their sessions
type PrincipalRepository struct {
	db *database.DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *database.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// Create inserts a new principal. Returns ErrDuplicate when the username is
// already taken.
func (r *PrincipalRepository) Create(username, email, passwordHash string, isSuperuser bool) (*models.Principal, error) {
	query := `
		INSERT INTO principals (username, email, password_hash, is_superuser)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, username, email, passwordHash, isSuperuser)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	return &models.Principal{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsSuperuser:  isSuperuser,
		CreatedAt:    time.Now(),
	}, nil
}

const principalColumns = "id, username, email, password_hash, is_superuser, last_login, created_at"

func (r *PrincipalRepository) scanOne(row *sql.Row) (*models.Principal, error) {
	p := &models.Principal{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.PasswordHash,
		&p.IsSuperuser,
		&lastLogin,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	if lastLogin.Valid {
		p.LastLogin = &lastLogin.Time
	}
	return p, nil
}

// GetByUsername retrieves a principal by username
func (r *PrincipalRepository) GetByUsername(username string) (*models.Principal, error) {
	query := "SELECT " + principalColumns + " FROM principals WHERE username = ?"
	return r.scanOne(r.db.QueryRow(query, username))
}

// GetByID retrieves a principal by ID
func (r *PrincipalRepository) GetByID(id int64) (*models.Principal, error) {
	query := "SELECT " + principalColumns + " FROM principals WHERE id = ?"
	return r.scanOne(r.db.QueryRow(query, id))
}

// UpdateLastLogin stamps the principal's last successful login
func (r *PrincipalRepository) UpdateLastLogin(id int64, at time.Time) error {
	query := "UPDATE principals SET last_login = ? WHERE id = ?"
	if _, err := r.db.Exec(query, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// CreateSession creates a new session for a principal
func (r *PrincipalRepository) CreateSession(sessionID string, principalID int64, expiresAt time.Time) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, principal_id, expires_at)
		VALUES (?, ?, ?)
	`
	if _, err := r.db.Exec(query, sessionID, principalID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:          sessionID,
		PrincipalID: principalID,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}, nil
}

// GetSession retrieves a session by ID
func (r *PrincipalRepository) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, principal_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.PrincipalID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *PrincipalRepository) DeleteSession(sessionID string) error {
	query := "DELETE FROM sessions WHERE id = ?"
	if _, err := r.db.Exec(query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteSessionsForPrincipal removes every session belonging to a principal
func (r *PrincipalRepository) DeleteSessionsForPrincipal(principalID int64) error {
	query := "DELETE FROM sessions WHERE principal_id = ?"
	if _, err := r.db.Exec(query, principalID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (r *PrincipalRepository) DeleteExpiredSessions() error {
	query := "DELETE FROM sessions WHERE expires_at < ?"
	if _, err := r.db.Exec(query, time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}

// ActivePrincipalIDs returns the set of principals with a live session
// (dashboard activity indicator)
func (r *PrincipalRepository) ActivePrincipalIDs() (map[int64]bool, error) {
	query := "SELECT DISTINCT principal_id FROM sessions WHERE expires_at > ?"
	rows, err := r.db.Query(query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	active := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session principal: %w", err)
		}
		active[id] = true
	}

	return active, rows.Err()
}

// PrincipalWithProvider is a dashboard row joining a principal with its
// profile's sign-in provider.
type PrincipalWithProvider struct {
	Principal models.Principal
	Provider  string
}

// GetAllWithProviders lists all non-superuser principals with their profile
// provider, newest first
func (r *PrincipalRepository) GetAllWithProviders() ([]PrincipalWithProvider, error) {
	query := `
		SELECT p.id, p.username, p.email, p.is_superuser, p.last_login, p.created_at,
		       COALESCE(pr.provider, '')
		FROM principals p
		LEFT JOIN profiles pr ON pr.principal_id = p.id
		WHERE p.is_superuser = ` + r.db.Dialect.BoolValue(false) + `
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query principals: %w", err)
	}
	defer rows.Close()

	var users []PrincipalWithProvider
	for rows.Next() {
		var u PrincipalWithProvider
		var lastLogin sql.NullTime
		if err := rows.Scan(
			&u.Principal.ID, &u.Principal.Username, &u.Principal.Email,
			&u.Principal.IsSuperuser, &lastLogin, &u.Principal.CreatedAt,
			&u.Provider,
		); err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		if lastLogin.Valid {
			u.Principal.LastLogin = &lastLogin.Time
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
