package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ledgerbook/internal/authz"
	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/models"
	"ledgerbook/internal/pagination"
)

// LoginPolicy controls account lockout after repeated failed logins.
type LoginPolicy struct {
	MaxAttempts int
	Lockout     time.Duration
}

// DefaultLoginPolicy locks an account for 15 minutes after 5 failures.
func DefaultLoginPolicy() LoginPolicy {
	return LoginPolicy{MaxAttempts: 5, Lockout: 15 * time.Minute}
}

// userService handles user-related business logic.
type userService struct {
	db     *gorm.DB
	policy LoginPolicy
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, policy LoginPolicy) UserServicer {
	if policy.MaxAttempts < 1 {
		policy = DefaultLoginPolicy()
	}
	return &userService{db: db, policy: policy}
}

// CreateUser adds an account. Only admins (or operator tooling) may do this.
func (s *userService) CreateUser(ctx context.Context, actor authz.Identity, input CreateUserInput) (*models.User, error) {
	if err := authz.Authorize(actor, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}

	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username and password are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password must be at least 8 characters")
	}
	if !input.Role.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be admin, manager or cash_collector")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Username: username,
		Password: string(hashedPassword),
		FullName: strings.TrimSpace(input.FullName),
		Role:     input.Role,
		IsActive: true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateUsername
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByUsername retrieves an active user by username
func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(username)), true).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFoundOr(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

// ListUsers returns users ordered by username, optionally narrowed to one role.
func (s *userService) ListUsers(ctx context.Context, actor authz.Identity, role *models.Role, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if err := authz.Authorize(actor, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if role != nil {
		query = query.Where("role = ?", *role)
	}

	resp, err := pagination.Find[models.User](query.Order("username ASC"), page)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &resp, nil
}

// SetUserActive enables or disables sign-in for a user. Deactivated
// collectors can no longer receive book assignments.
func (s *userService) SetUserActive(ctx context.Context, actor authz.Identity, id string, active bool) (*models.User, error) {
	if err := authz.Authorize(actor, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	if id == actor.UserID && !active {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "you cannot deactivate your own account")
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"is_active": active}
	if !active {
		updates["refresh_token_hash"] = ""
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.IsActive = active
	return user, nil
}

// DeleteUser removes a user who is not referenced by any ledger record.
func (s *userService) DeleteUser(ctx context.Context, actor authz.Identity, id string) error {
	if err := authz.Authorize(actor, authz.ActionManageUsers, authz.Resource{}); err != nil {
		return err
	}
	if id == actor.UserID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "you cannot delete your own account")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return notFoundOr(err, apperrors.ErrUserNotFound)
		}

		references := []struct {
			model any
			query string
		}{
			{&models.ReceiptBook{}, "assigned_to_id = @id OR created_by_id = @id"},
			{&models.Receipt{}, "issued_by_id = @id"},
			{&models.Expense{}, "recorded_by_id = @id"},
			{&models.PublishedReport{}, "published_by_id = @id"},
		}
		for _, ref := range references {
			var count int64
			if err := tx.Model(ref.model).Where(ref.query, sql.Named("id", id)).Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return apperrors.ErrUserInUse
			}
		}

		if err := tx.Delete(&user).Error; err != nil {
			if isForeignKeyViolation(err) {
				return apperrors.ErrUserInUse
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// AttemptLogin checks credentials and applies the lockout policy. Unknown
// usernames and wrong passwords return the same error.
func (s *userService) AttemptLogin(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperrors.ErrAccountLocked
	}

	db := s.db.WithContext(ctx).Model(user)
	if !s.VerifyPassword(user, password) {
		attempts := user.FailedLoginAttempts + 1
		updates := map[string]any{"failed_login_attempts": attempts}
		if attempts >= s.policy.MaxAttempts {
			lockedUntil := now.Add(s.policy.Lockout)
			updates["locked_until"] = lockedUntil
			updates["failed_login_attempts"] = 0
		}
		if err := db.Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if attempts >= s.policy.MaxAttempts {
			return nil, apperrors.ErrAccountLocked
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	err = db.Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	return user, nil
}

// StoreRefreshTokenHash saves the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash of an active user.
func (s *userService) GetRefreshTokenHash(ctx context.Context, userID string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("refresh_token_hash").
		Where("id = ? AND is_active = ?", userID, true).
		First(&user).Error
	if err != nil {
		return "", notFoundOr(err, apperrors.ErrUserNotFound)
	}
	return user.RefreshTokenHash, nil
}
