package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tablemates/gamenight/internal/auth"
	"github.com/tablemates/gamenight/internal/models"
)

// AuthService registers accounts and issues session tokens. It exists at
// the boundary only: every other service takes the authenticated user ID as
// a plain parameter.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// Register creates a new user account and returns a session token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*AuthResult, error) {
	slog.Info("Register request", "email", email)

	if email == "" || displayName == "" {
		return &AuthResult{Result: fail("email and display name are required")}, nil
	}

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) || errors.Is(err, auth.ErrWeakPassword) {
			return &AuthResult{Result: fail(err.Error())}, nil
		}
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	return &AuthResult{Result: ok(), Token: token, User: newUserView(user)}, nil
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	slog.Info("Login request", "email", email)

	if email == "" || password == "" {
		return &AuthResult{Result: fail(auth.ErrInvalidCredentials.Error())}, nil
	}

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("Login failed", "email", email)
			return &AuthResult{Result: fail(auth.ErrInvalidCredentials.Error())}, nil
		}
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, err
	}

	slog.Info("User logged in", "user_id", user.ID)
	return &AuthResult{Result: ok(), Token: token, User: newUserView(user)}, nil
}

func newUserView(user *models.User) *UserView {
	return &UserView{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}
