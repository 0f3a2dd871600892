package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/userfolio/webapp/types"
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, name, birthday, address, username, password_hash, image_filename, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, name, birthday, address, username, password_hash, image_filename, created_at, updated_at
		FROM users
		WHERE username = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, birthday, address, username, password_hash, image_filename, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Birthday,
		user.Address,
		user.Username,
		user.PasswordHash,
		nullString(user.ImageFilename),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var imageFilename sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Birthday,
		&user.Address,
		&user.Username,
		&user.PasswordHash,
		&imageFilename,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.ImageFilename = imageFilename.String
	return user, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
