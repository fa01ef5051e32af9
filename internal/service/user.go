package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// UserService covers profile self-service and the admin operations on
// accounts. Authentication itself lives in AuthService.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UpdateProfile changes the caller's display name. Email is not
// editable here: the address was proven by OTP (or by Google) and a
// free-form change would bypass that proof.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", userID, err)
	}

	user.Name = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating profile %s: %w", userID, err)
	}
	return user, nil
}

// ListUsers returns all accounts. Admin-only caller.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// AdminUpdateInput carries the admin-editable account fields. Nil means
// "leave unchanged".
type AdminUpdateInput struct {
	Name   *string
	Role   *model.Role
	Active *bool
}

// AdminUpdate edits an account: rename, promote/demote, and the
// soft-deactivation switch. Deactivation is the system's only token
// revocation — the gate re-checks Active on every request, so flipping
// it here locks the account out immediately, unexpired tokens included.
func (s *UserService) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", id, err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		user.Name = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperror.ValidationFailed("role",
				fmt.Sprintf("role must be %q or %q", model.RoleUser, model.RoleAdmin))
		}
		user.Role = *in.Role
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated by admin",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
		slog.Bool("active", user.Active),
	)
	return user, nil
}
