// Package auth checks credentials against stored users and gates access by
// role and section. There is no token issuance and no password hashing.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
)

// Error codes match the ones clients already map to messages.
var (
	ErrUserNotFound    = errors.New("USER_NOT_FOUND")
	ErrInvalidPassword = errors.New("INVALID_PASSWORD")
	ErrForbidden       = errors.New("FORBIDDEN")
)

// Defaults applied to users stored without a role or section.
const (
	DefaultRole    = "Admin"
	DefaultSection = "admin"
)

// Session is the denormalized user payload a client keeps for the session.
type Session struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Username      string   `json:"username"`
	CurrentPeriod string   `json:"current_period"`
	Periods       []string `json:"periods"`
	Role          string   `json:"role"`
	Section       string   `json:"section"`
}

// NewSession builds the session payload of a stored user.
func NewSession(u models.User) Session {
	s := Session{
		ID:            u.ID,
		Name:          u.Name,
		Username:      u.Username,
		CurrentPeriod: u.CurrentPeriod,
		Periods:       u.Periods,
		Role:          u.Role,
		Section:       u.Section,
	}
	if s.Role == "" {
		s.Role = DefaultRole
	}
	if s.Section == "" {
		s.Section = DefaultSection
	}
	if s.Periods == nil {
		s.Periods = []string{}
	}
	return s
}

// IsAdmin reports whether the session holds the admin role.
func (s Session) IsAdmin() bool {
	return strings.EqualFold(s.Role, models.RoleAdmin)
}

// PeriodKey is the storage key of the active period, or "" when none is selected.
func (s Session) PeriodKey() string {
	return models.EncodePeriodKey(s.CurrentPeriod)
}

// RequireAdmin fails with ErrForbidden unless the session is an admin.
func (s Session) RequireAdmin() error {
	if !s.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// RequireSection fails with ErrForbidden when a non-admin session reaches
// outside its own section.
func (s Session) RequireSection(section string) error {
	if s.IsAdmin() || s.Section == section {
		return nil
	}
	return fmt.Errorf("%w: section %q", ErrForbidden, section)
}

// RequirePeriod fails with ErrForbidden when a non-admin session reads a
// period it was never granted. The active period is always allowed.
func (s Session) RequirePeriod(periodKey string) error {
	if s.IsAdmin() || periodKey == s.PeriodKey() {
		return nil
	}
	for _, display := range s.Periods {
		if models.EncodePeriodKey(display) == periodKey {
			return nil
		}
	}
	return fmt.Errorf("%w: period %q not granted", ErrForbidden, periodKey)
}

// UserFinder looks users up by username.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// Authenticator verifies username and password pairs.
type Authenticator struct {
	users  UserFinder
	logger *zap.Logger
}

// NewAuthenticator wires an authenticator over the user directory.
func NewAuthenticator(users UserFinder, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{users: users, logger: logger}
}

// Authenticate returns the session of the matching user. Passwords are
// compared as stored.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, ErrUserNotFound
	}

	user, err := a.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		a.logger.Info("login rejected", zap.String("username", username), zap.String("reason", ErrUserNotFound.Error()))
		return Session{}, ErrUserNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.Password != password {
		a.logger.Info("login rejected", zap.String("username", username), zap.String("reason", ErrInvalidPassword.Error()))
		return Session{}, ErrInvalidPassword
	}
	return NewSession(user), nil
}

// Message maps an authentication error to the text shown to operators.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "username does not exist"
	case errors.Is(err, ErrInvalidPassword):
		return "incorrect password"
	case errors.Is(err, ErrForbidden):
		return "you do not have access to this page"
	default:
		return "login failed"
	}
}
