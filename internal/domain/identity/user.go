package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"      // Can sign in
	UserStatusLocked      UserStatus = "locked"      // Too many failed sign-ins
	UserStatusDeactivated UserStatus = "deactivated" // Disabled by an admin
)

// IsValid checks if the status is a known value
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusLocked, UserStatusDeactivated:
		return true
	}
	return false
}

// Role is the access level of a user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Password cost for bcrypt
const bcryptCost = 12

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
	hasLetter  = regexp.MustCompile(`[a-zA-Z]`)
	hasNumber  = regexp.MustCompile(`[0-9]`)
)

// User is a storefront account, either a customer or an admin
type User struct {
	shared.BaseAggregateRoot
	Name              string
	Email             string
	Phone             string
	PasswordHash      string
	Role              Role
	Status            UserStatus
	LastLoginAt       *time.Time
	LastLoginIP       string
	FailedAttempts    int
	LockedUntil       *time.Time
	PasswordChangedAt *time.Time
}

// NewUser registers an active customer
func NewUser(name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}

	now := time.Now()
	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              RoleCustomer,
		Status:            UserStatusActive,
		PasswordChangedAt: &now,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// NormalizeEmail lowercases and trims an email so lookups are case insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpdateProfile changes name and phone
func (u *User) UpdateProfile(name, phone string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	phone = strings.TrimSpace(phone)
	if phone != "" && !phoneRegex.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}

	u.Name = name
	u.Phone = phone
	u.touch()
	return nil
}

// SetEmail changes the sign-in email; uniqueness is checked by the caller
func (u *User) SetEmail(email string) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	u.Email = email
	u.touch()
	return nil
}

// ChangePassword changes the user's password
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password without checking the old one
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.WrapDomainError("PASSWORD_HASH_ERROR", "Failed to hash password", err)
	}

	now := time.Now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	u.touch()

	u.AddDomainEvent(NewUserPasswordChangedEvent(u))

	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetRole changes the access level
func (u *User) SetRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Role must be customer or admin")
	}
	if u.Role == role {
		return nil
	}
	u.Role = role
	u.touch()
	return nil
}

// Activate re-enables a locked or deactivated user
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}

	old := u.Status
	u.Status = UserStatusActive
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, old))

	return nil
}

// Deactivate disables the user; deactivated users cannot sign in
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
	}

	old := u.Status
	u.Status = UserStatusDeactivated
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, old))

	return nil
}

// Lock locks the account for duration; zero locks until an admin activates it
func (u *User) Lock(duration time.Duration) error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("USER_DEACTIVATED", "Cannot lock a deactivated user")
	}

	old := u.Status
	u.Status = UserStatusLocked
	u.LockedUntil = nil
	if duration > 0 {
		until := time.Now().Add(duration)
		u.LockedUntil = &until
	}
	u.touch()

	u.AddDomainEvent(NewUserStatusChangedEvent(u, old))

	return nil
}

// RecordLoginSuccess records a successful sign-in and clears an expired lock
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	if u.Status == UserStatusLocked && !u.IsLocked() {
		u.Status = UserStatusActive
		u.LockedUntil = nil
	}
	u.touch()
}

// RecordLoginFailure records a failed sign-in.
// Returns true if the account got locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.touch()

	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts && u.Status == UserStatusActive {
		_ = u.Lock(lockDuration)
		return true
	}
	return false
}

// IsActive returns true if user is active
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsAdmin returns true for admins
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLocked returns true while a lock is in force
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	if u.LockedUntil != nil && time.Now().After(*u.LockedUntil) {
		return false
	}
	return true
}

// IsDeactivated returns true if user is deactivated
func (u *User) IsDeactivated() bool {
	return u.Status == UserStatusDeactivated
}

// CanLogin returns true if user can sign in
func (u *User) CanLogin() bool {
	return !u.IsDeactivated() && !u.IsLocked()
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !hasLetter.MatchString(password) || !hasNumber.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
