package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/types"
)

const defaultSessionTTL = 24 * time.Hour

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session) (types.Session, error)
	GetByID(ctx context.Context, id string) (types.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionService issues and validates login sessions.
//
// The cookie value handed to clients is an HS256 JWT whose ID claim is a
// random session identifier. The signature lets the server discard forged
// cookies without a database hit, but identity is only ever established
// by the server-side session row the claim points at; deleting the row
// revokes the session immediately regardless of token expiry.
type SessionService struct {
	repo   SessionRepository
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

func NewSessionService(repo SessionRepository, secret string, ttl time.Duration) (*SessionService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a session for the user and returns the signed cookie
// value. Expired sessions are purged as a side effect so the table does
// not grow without bound.
func (s *SessionService) Issue(ctx context.Context, userID int) (string, error) {
	now := s.now()
	_, _ = s.repo.DeleteExpired(ctx, now)

	session, err := s.repo.Create(ctx, types.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks a cookie value and returns the authenticated user ID.
// Any failure, whether a bad signature, a missing row, or an expired
// session, maps to ErrSessionInvalid.
func (s *SessionService) Validate(ctx context.Context, cookieValue string) (int, error) {
	sessionID, err := s.parseSessionID(cookieValue)
	if err != nil {
		return 0, ErrSessionInvalid
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrSessionInvalid
		}
		return 0, err
	}

	if session.Expired(s.now()) {
		_ = s.repo.Delete(ctx, session.ID)
		return 0, ErrSessionInvalid
	}
	return session.UserID, nil
}

// Revoke destroys the session named by the cookie value. Unknown or
// already-revoked sessions are not an error; logout is idempotent.
func (s *SessionService) Revoke(ctx context.Context, cookieValue string) error {
	sessionID, err := s.parseSessionID(cookieValue)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *SessionService) parseSessionID(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return "", errors.New("missing session id")
	}
	return claims.ID, nil
}
