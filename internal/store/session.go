package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/userfolio/webapp/types"
)

// SessionRepository handles persistence for login sessions.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session types.Session) (types.Session, error) {
	session.CreatedAt = time.Now()

	const query = `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	); err != nil {
		return types.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (types.Session, error) {
	const query = `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = $1`
	var session types.Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry. It is called
// opportunistically from the session service; there is no background
// sweeper.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
