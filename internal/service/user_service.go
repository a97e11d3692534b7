package service

import (
	"context"
	"fmt"
	"strings"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/repository"

	"go.uber.org/zap"
)

// UserService manages accounts and role assignment.
type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.AppUser, error)
	GetUser(ctx context.Context, userID string) (*domain.AppUser, error)
	EnsureUser(ctx context.Context, email string, role domain.Role) (string, error)
	SetRole(ctx context.Context, userID, role string) error
}

type userService struct {
	users  repository.UsersRepository
	logger *zap.Logger
}

func NewUserService(users repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{users: users, logger: logger}
}

func (s *userService) ListUsers(ctx context.Context) ([]*domain.AppUser, error) {
	return s.users.ListUsers(ctx)
}

func (s *userService) GetUser(ctx context.Context, userID string) (*domain.AppUser, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *userService) EnsureUser(ctx context.Context, email string, role domain.Role) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	id, err := s.users.EnsureUser(ctx, email, role)
	if err != nil {
		return "", err
	}
	s.logger.Info("user ensured", zap.String("email", email), zap.String("user_id", id))
	return id, nil
}

// SetRole assigns the requested role after validating the token.
func (s *userService) SetRole(ctx context.Context, userID, role string) error {
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	if err := s.users.SetRole(ctx, userID, parsed); err != nil {
		return err
	}
	s.logger.Info("user role updated",
		zap.String("user_id", userID),
		zap.String("requested_role", string(parsed)),
	)
	return nil
}
