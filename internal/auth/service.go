package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nikhilbhutani/speechtotext/internal/models"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles registration and login. It never stores sessions; a login only mints a token.
type Service struct {
	store      Store
	tokens     *TokenIssuer
	bcryptCost int
	compare    func(hash, password string) bool

	// Unknown emails are checked against this hash so both login failures cost one bcrypt
	// comparison at the configured cost.
	dummyOnce sync.Once
	dummyHash string
}

func NewService(store Store, tokens *TokenIssuer, bcryptCost int) *Service {
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost, compare: CheckPassword}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", ErrValidation)
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, &models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.compare(s.placeholderHash(), password)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !s.compare(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(user.ID, user.Email)
}

func (s *Service) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("placeholder-password", s.bcryptCost)
		if err != nil {
			slog.Error("generate placeholder hash failed", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
