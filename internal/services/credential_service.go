package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"skillchat/internal/database"
	"skillchat/internal/models"
)

// CredentialService is the store for per-user calendar OAuth credentials.
//
// It is the only shared mutable resource in the process. All writes for one
// user go through that user's lock (see WithUserLock), which makes
// check-then-refresh sequences single-flight per user: two concurrent
// requests holding the same expired token perform one refresh, not two.
type CredentialService struct {
	db *database.DB

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewCredentialService creates a new credential store.
func NewCredentialService(db *database.DB) *CredentialService {
	return &CredentialService{
		db:        db,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// WithUserLock runs fn while holding the per-user credential lock.
func (s *CredentialService) WithUserLock(userID string, fn func() error) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (s *CredentialService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// Get loads the credential record for a user.
// Returns ErrNotConnected when no record exists.
func (s *CredentialService) Get(ctx context.Context, userID string) (*models.CalendarCredential, error) {
	var cred models.CalendarCredential
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM user_calendar_tokens WHERE user_id = ?
	`, userID).Scan(&cred.UserID, &cred.AccessToken, &cred.RefreshToken,
		&cred.ExpiresAt, &cred.CreatedAt, &cred.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &cred, nil
}

// Exists reports whether a credential record exists for the user. Expiry is
// irrelevant here: connectivity and validity are distinct concerns.
func (s *CredentialService) Exists(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM user_calendar_tokens WHERE user_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check credential: %w", err)
	}
	return true, nil
}

// Upsert writes the full access/refresh/expiry triple for a user in a
// single statement per row, so a reader never observes a partial update.
// Callers mutating an existing record must hold the user's lock.
func (s *CredentialService) Upsert(ctx context.Context, cred *models.CalendarCredential) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE user_calendar_tokens
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		WHERE user_id = ?
	`, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, now, cred.UserID)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_calendar_tokens
			(user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cred.UserID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// ExpiringBefore returns the IDs of users whose access token expires before
// the cutoff. Used by the proactive refresh job.
func (s *CredentialService) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM user_calendar_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
