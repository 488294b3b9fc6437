package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/anditama/inventory-management/internal/auth"
)

// SessionRepository persists sessions keyed by token hash. Expiry is
// declarative: rows are considered dead once expires_at passes, and the
// purge job only reclaims storage.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	session.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO sessions (token_hash, user_id, expires_at, revoked_at, permissions, created_at)
		 VALUES (?, ?, ?, NULL, NULL, ?)`,
		session.TokenHash, session.UserID, session.ExpiresAt, session.CreatedAt,
	).Error
}

// IsActive is the session liveness predicate: not revoked and not past its
// expiry. A verified token whose row fails this check is unauthenticated.
func (r *SessionRepository) IsActive(ctx context.Context, tokenHash string) (bool, error) {
	var one int
	row := r.db.WithContext(ctx).Raw(
		`SELECT 1 FROM sessions
		 WHERE token_hash = ?
		   AND revoked_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)`,
		tokenHash, time.Now(),
	).Row()

	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *SessionRepository) Revoke(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		time.Now(), tokenHash,
	).Error
}

func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		time.Now(), userID,
	).Error
}

// CachedPermissions returns the permission blob riding on the session row.
// The second return reports whether a cache entry exists at all; an empty
// permission set is a valid cached value.
func (r *SessionRepository) CachedPermissions(ctx context.Context, tokenHash string) ([]string, bool, error) {
	var blob sql.NullString
	row := r.db.WithContext(ctx).Raw(
		`SELECT permissions FROM sessions WHERE token_hash = ?`, tokenHash,
	).Row()

	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !blob.Valid {
		return nil, false, nil
	}

	var permissions []string
	if err := json.Unmarshal([]byte(blob.String), &permissions); err != nil {
		// Treat an unreadable blob as a miss; the caller repopulates it.
		return nil, false, nil
	}
	return permissions, true, nil
}

func (r *SessionRepository) StorePermissions(ctx context.Context, tokenHash string, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	blob, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE sessions SET permissions = ? WHERE token_hash = ?`,
		string(blob), tokenHash,
	).Error
}

// InvalidatePermissionCache clears the cached blob on every session the user
// owns. Role changes call this inside their own transaction; this standalone
// form exists for administrative tooling.
func (r *SessionRepository) InvalidatePermissionCache(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE sessions SET permissions = NULL WHERE user_id = ?`, userID,
	).Error
}

// PurgeExpired deletes sessions that expired or were revoked longer than
// retention ago. Rows inside the retention window stay for audit trails.
func (r *SessionRepository) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := r.db.WithContext(ctx).Exec(
		`DELETE FROM sessions
		 WHERE (expires_at IS NOT NULL AND expires_at < ?)
		    OR (revoked_at IS NOT NULL AND revoked_at < ?)`,
		cutoff, cutoff,
	)
	return result.RowsAffected, result.Error
}
