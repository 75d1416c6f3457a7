package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// UserService handles admin user management
type UserService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		publisher:  publisher,
		logger:     logger,
	}
}

// List returns a page of users
func (s *UserService) List(ctx context.Context, input UserListInput) (*shared.Paginated[UserInfo], error) {
	filter := identity.NewUserFilter().WithKeyword(input.Keyword)
	if input.Status != "" {
		status := identity.UserStatus(input.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Status must be active, locked or deactivated")
		}
		filter = filter.WithStatus(status)
	}
	if input.Role != "" {
		role := identity.Role(input.Role)
		if !role.IsValid() {
			return nil, shared.NewDomainError("INVALID_ROLE", "Role must be customer or admin")
		}
		filter = filter.WithRole(role)
	}
	if input.Page > 0 || input.PageSize > 0 {
		page, size := input.Page, input.PageSize
		if page <= 0 {
			page = 1
		}
		if size <= 0 {
			size = filter.PageSize
		}
		filter = filter.WithPagination(page, size)
	}
	if input.SortBy != "" {
		filter.SortBy = input.SortBy
	}
	if input.SortDir != "" {
		filter.SortOrder = input.SortDir
	}

	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}

	items := make([]UserInfo, len(users))
	for i, u := range users {
		items[i] = toUserInfo(u)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserInfo, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user)
	return &info, nil
}

// Update applies an admin's changes. Deactivating or locking a user revokes
// their issued tokens.
func (s *UserService) Update(ctx context.Context, actorID, id uuid.UUID, input AdminUpdateUserInput) (*UserInfo, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil || input.Phone != nil {
		name, phone := user.Name, user.Phone
		if input.Name != nil {
			name = *input.Name
		}
		if input.Phone != nil {
			phone = *input.Phone
		}
		if err := user.UpdateProfile(name, phone); err != nil {
			return nil, err
		}
	}

	if input.Email != nil && identity.NormalizeEmail(*input.Email) != user.Email {
		exists, err := s.userRepo.ExistsByEmail(ctx, identity.NormalizeEmail(*input.Email))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("EMAIL_EXISTS", "An account with this email already exists")
		}
		if err := user.SetEmail(*input.Email); err != nil {
			return nil, err
		}
	}

	if input.Role != nil {
		role := identity.Role(*input.Role)
		if user.IsAdmin() && role != identity.RoleAdmin {
			if actorID == user.ID {
				return nil, shared.NewDomainError("CANNOT_DEMOTE_SELF", "Admins cannot remove their own admin role")
			}
			if err := s.ensureOtherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		if err := user.SetRole(role); err != nil {
			return nil, err
		}
	}

	revoke := false
	if input.Status != nil {
		status := identity.UserStatus(*input.Status)
		if status != user.Status {
			if actorID == user.ID {
				return nil, shared.NewDomainError("CANNOT_CHANGE_OWN_STATUS", "Admins cannot change their own status")
			}
			switch status {
			case identity.UserStatusActive:
				err = user.Activate()
			case identity.UserStatusDeactivated:
				err = user.Deactivate()
				revoke = true
			case identity.UserStatusLocked:
				err = user.Lock(0)
				revoke = true
			default:
				err = shared.NewDomainError("INVALID_STATUS", "Status must be active, locked or deactivated")
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) || errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to update user", zap.String("user_id", id.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}
	s.publish(ctx, user)

	if revoke {
		s.revokeUser(ctx, user.ID)
	}

	s.logger.Info("User updated by admin",
		zap.String("user_id", id.String()),
		zap.String("actor_id", actorID.String()))

	info := toUserInfo(user)
	return &info, nil
}

// Delete removes a user. The last admin and the acting admin cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "Admins cannot delete their own account")
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		if err := s.ensureOtherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.revokeUser(ctx, id)

	s.logger.Info("User deleted",
		zap.String("user_id", id.String()),
		zap.String("actor_id", actorID.String()))
	return nil
}

func (s *UserService) find(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.WrapDomainError("NOT_FOUND", "User not found", err)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureOtherAdmin(ctx context.Context) error {
	admins, err := s.userRepo.CountByRole(ctx, identity.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return shared.NewDomainError("LAST_ADMIN", "At least one admin must remain")
	}
	return nil
}

func (s *UserService) revokeUser(ctx context.Context, userID uuid.UUID) {
	if s.blacklist == nil || s.jwtService == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Warn("Failed to revoke user tokens", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *UserService) publish(ctx context.Context, user *identity.User) {
	events := user.PopDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish user events", zap.Error(err))
	}
}
