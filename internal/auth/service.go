package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/anditama/inventory-management/internal"
)

// LoginResult is what a successful authentication hands back to the
// transport layer.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Service performs authentication business logic: credential verification,
// session creation and revocation.
type Service struct {
	directory       DirectoryRepository
	sessions        SessionRepository
	codec           *Codec
	sessionDuration time.Duration
	bcryptCost      int
	logger          *slog.Logger
}

func NewService(directory DirectoryRepository, sessions SessionRepository, codec *Codec, sessionDuration time.Duration, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		directory:       directory,
		sessions:        sessions,
		codec:           codec,
		sessionDuration: sessionDuration,
		bcryptCost:      bcryptCost,
		logger:          logger,
	}
}

// Authenticate verifies credentials, signs a session token and persists the
// backing session row keyed by the token hash.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, err := s.directory.GetUserByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, internal.ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   primaryRole(user.Roles),
		Roles:  user.Roles,
		Name:   user.Name,
	}
	token, err := s.codec.Sign(claims, s.sessionDuration)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign session token", err)
	}

	expiresAt := time.Now().Add(s.sessionDuration)
	session := &Session{
		TokenHash: HashToken(token),
		UserID:    user.ID,
		ExpiresAt: &expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, internal.NewStorageError("failed to create session", err)
	}

	s.logger.Info("user authenticated", "user_id", user.ID, "email", user.Email)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the session backing the presented token. The token's
// cryptographic expiry is irrelevant after this; the guard treats the
// revoked session as unauthenticated.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if s.codec.Verify(rawToken) == nil {
		return internal.ErrInvalidToken
	}
	if err := s.sessions.Revoke(ctx, HashToken(rawToken)); err != nil {
		return internal.NewStorageError("failed to revoke session", err)
	}
	return nil
}

// CurrentUser resolves the authenticated user behind a token, requiring an
// active session.
func (s *Service) CurrentUser(ctx context.Context, rawToken string) (*User, error) {
	claims := s.codec.Verify(rawToken)
	if claims == nil {
		return nil, internal.ErrInvalidToken
	}

	active, err := s.sessions.IsActive(ctx, HashToken(rawToken))
	if err != nil {
		return nil, internal.NewStorageError("failed to check session", err)
	}
	if !active {
		return nil, internal.ErrSessionRevoked
	}

	user, err := s.directory.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return user, nil
}

// HashPassword produces a bcrypt hash at the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
