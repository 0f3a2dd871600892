package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/types"
	"golang.org/x/crypto/bcrypt"
)

const birthdayLayout = "2006-01-02"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// RegisterInput is the typed registration payload, validated before use.
type RegisterInput struct {
	Name     string
	Birthday string
	Address  string
	Username string
	Password string

	// ImageFilename is the already-stored photo key, or empty.
	ImageFilename string
}

// UserService implements registration and credential verification.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates an account from validated input. The plaintext
// password is hashed with bcrypt and never stored. A conflicting
// username surfaces as store.ErrDuplicateUsername.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	name := strings.TrimSpace(input.Name)
	username := strings.TrimSpace(input.Username)
	if name == "" || username == "" || input.Password == "" {
		return types.User{}, ErrMissingFields
	}

	birthday, err := time.Parse(birthdayLayout, strings.TrimSpace(input.Birthday))
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %q", ErrInvalidDate, input.Birthday)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, types.User{
		Name:          name,
		Birthday:      birthday,
		Address:       strings.TrimSpace(input.Address),
		Username:      username,
		PasswordHash:  string(hashed),
		ImageFilename: input.ImageFilename,
	})
}

// Authenticate verifies a username/password pair. An unknown username and
// a wrong password are indistinguishable: both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}
