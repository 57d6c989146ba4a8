package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

var (
	ErrUsernameRequired = fmt.Errorf("%w: username is required", models.ErrValidation)
	ErrPasswordRequired = fmt.Errorf("%w: password is required", models.ErrValidation)
	ErrUsernameTaken    = fmt.Errorf("%w: username already exists", models.ErrValidation)
	ErrPeriodNotGranted = fmt.Errorf("%w: period is not available to this user", models.ErrValidation)
)

// Users manages user accounts and their period visibility.
type Users struct {
	store  repository.Store
	logger *zap.Logger
}

// NewUsers wires the users service.
func NewUsers(store repository.Store, logger *zap.Logger) *Users {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Users{store: store, logger: logger}
}

// List returns every user sorted by name.
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	docs, err := u.store.List(ctx, models.UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		user, err := models.DecodeUser(doc)
		if err != nil {
			u.logger.Error("skip undecodable user", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, user)
	}
	ledger.SortByName(out, func(user models.User) string { return user.Name })
	return out, nil
}

// Get loads a user by id.
func (u *Users) Get(ctx context.Context, id string) (models.User, error) {
	doc, err := u.store.Get(ctx, models.UsersCollection, id)
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return models.DecodeUser(doc)
}

// FindByUsername returns the user with the given username or repository.ErrNotFound.
func (u *Users) FindByUsername(ctx context.Context, username string) (models.User, error) {
	users, err := u.List(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, user := range users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, repository.ErrNotFound)
}

// Create stores a new account. Periods default to an empty list.
func (u *Users) Create(ctx context.Context, user models.User) (models.User, error) {
	if err := validateUser(user); err != nil {
		return models.User{}, err
	}
	if _, err := u.FindByUsername(ctx, user.Username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.User{}, err
	}
	if user.Periods == nil {
		user.Periods = []string{}
	}

	data, err := models.ToData(user)
	if err != nil {
		return models.User{}, err
	}
	id, err := u.store.Create(ctx, models.UsersCollection, data)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return user, nil
}

// Update changes the profile fields of a user. Periods are managed separately.
func (u *Users) Update(ctx context.Context, id string, user models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if existing, err := u.FindByUsername(ctx, user.Username); err == nil && existing.ID != id {
		return ErrUsernameTaken
	}
	partial := map[string]any{
		"name":     user.Name,
		"username": user.Username,
		"password": user.Password,
		"role":     user.Role,
		"section":  user.Section,
	}
	if err := u.store.Update(ctx, models.UsersCollection, id, partial); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes a user.
func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.store.Delete(ctx, models.UsersCollection, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SetCurrentPeriod selects one of the user's granted periods as active.
func (u *Users) SetCurrentPeriod(ctx context.Context, id, display string) (models.User, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !user.HasPeriod(display) {
		return models.User{}, fmt.Errorf("%w: %q", ErrPeriodNotGranted, display)
	}
	if err := u.store.Update(ctx, models.UsersCollection, id, map[string]any{"current_period": display}); err != nil {
		return models.User{}, fmt.Errorf("set current period: %w", err)
	}
	user.CurrentPeriod = display
	return user, nil
}

// PeriodMismatch reports whether the active period differs from the calendar month of now.
func PeriodMismatch(user models.User, now time.Time) bool {
	return user.CurrentPeriod != models.CurrentPeriodDisplay(now)
}

// PeriodChange is the outcome of granting or revoking a period across users.
type PeriodChange struct {
	Updated int
	Skipped []ledger.Skipped
	// Stale lists users whose current_period still names a revoked period.
	Stale []string
}

// GrantPeriod adds display to every user's periods, once.
func (u *Users) GrantPeriod(ctx context.Context, display string) (PeriodChange, error) {
	return u.rewritePeriods(ctx, display, false, func(user models.User) ([]string, bool) {
		if user.HasPeriod(display) {
			return nil, false
		}
		return append(append([]string{}, user.Periods...), display), true
	})
}

// RevokePeriod removes display from every user's periods. current_period is left untouched.
func (u *Users) RevokePeriod(ctx context.Context, display string) (PeriodChange, error) {
	return u.rewritePeriods(ctx, display, true, func(user models.User) ([]string, bool) {
		if !user.HasPeriod(display) {
			return nil, false
		}
		kept := make([]string, 0, len(user.Periods))
		for _, p := range user.Periods {
			if p != display {
				kept = append(kept, p)
			}
		}
		return kept, true
	})
}

func (u *Users) rewritePeriods(ctx context.Context, display string, trackStale bool, next func(models.User) ([]string, bool)) (PeriodChange, error) {
	var change PeriodChange
	users, err := u.List(ctx)
	if err != nil {
		return change, err
	}

	for _, user := range users {
		if trackStale && user.CurrentPeriod == display {
			change.Stale = append(change.Stale, user.Username)
		}
		periods, ok := next(user)
		if !ok {
			continue
		}
		if err := u.store.Update(ctx, models.UsersCollection, user.ID, map[string]any{"periods": periods}); err != nil {
			change.Skipped = append(change.Skipped, ledger.Skipped{Collection: models.UsersCollection, ID: user.ID, Err: err})
			u.logger.Error("skip user period update", zap.String("id", user.ID), zap.Error(err))
			continue
		}
		change.Updated++
	}
	return change, nil
}

func validateUser(user models.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return ErrUsernameRequired
	}
	if user.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}
