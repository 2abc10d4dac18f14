package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidToken is returned for missing, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// CreateAdmin stores a new admin permitted to watch storeIDs. Superadmins may
// watch every store. Callers are responsible for authorizing the request.
func (s *Service) CreateAdmin(ctx context.Context, username, password string, storeIDs []string, superAdmin bool) (*store.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword, normalizeStoreIDs(storeIDs), superAdmin)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Register creates a store admin and returns a token for it.
func (s *Service) Register(ctx context.Context, username, password string, storeIDs []string) (string, error) {
	user, err := s.CreateAdmin(ctx, username, password, storeIDs, false)
	if err != nil {
		return "", err
	}
	return s.issue(user)
}

// EnsureSuperAdmin creates the superadmin unless a user with that name exists.
// It reports whether a user was created.
func (s *Service) EnsureSuperAdmin(ctx context.Context, username, password string) (bool, error) {
	existing, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err == nil && existing != nil {
		return false, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("lookup superadmin: %w", err)
	}
	if _, err := s.CreateAdmin(ctx, username, password, nil, true); err != nil {
		return false, err
	}
	return true, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.issue(user)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Authenticate resolves a bearer token into the principal attached to a connection.
func (s *Service) Authenticate(tokenString string) (core.Principal, error) {
	if tokenString == "" {
		return core.Principal{}, ErrInvalidToken
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return core.Principal{}, err
	}
	return claims.Principal(), nil
}

func (s *Service) issue(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, core.Principal{
		UserID:     user.ID,
		Username:   user.Username,
		StoreIDs:   user.StoreIDs,
		SuperAdmin: user.SuperAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func normalizeStoreIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
