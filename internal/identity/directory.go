package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Finder is the read side of Repository used for owner resolution.
type Finder interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByCode(ctx context.Context, code string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
}

// Directory resolves users from whatever identifier a caller was given.
type Directory struct {
	users Finder
}

// NewDirectory builds a directory over a user store.
func NewDirectory(users Finder) *Directory {
	return &Directory{users: users}
}

type lookupStep func(ctx context.Context, identifier string) (User, error)

// Lookup tries identifier as a uuid, then as an account code, then as a phone
// number. The first hit wins; ErrNotFound is returned when none match.
func (d *Directory) Lookup(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, ErrNotFound
	}
	for _, step := range d.chain() {
		user, err := step(ctx, identifier)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
	}
	return User{}, ErrNotFound
}

func (d *Directory) chain() []lookupStep {
	return []lookupStep{
		func(ctx context.Context, id string) (User, error) {
			if _, err := uuid.Parse(id); err != nil {
				return User{}, ErrNotFound
			}
			return d.users.FindByID(ctx, id)
		},
		func(ctx context.Context, id string) (User, error) {
			return d.users.FindByCode(ctx, strings.ToUpper(id))
		},
		func(ctx context.Context, id string) (User, error) {
			phone, err := NormalizePhone(id)
			if err != nil {
				return User{}, ErrNotFound
			}
			return d.users.FindByPhone(ctx, phone)
		},
	}
}

// Phone returns the phone number of a user, or "" when it cannot be
// resolved. Used to address best-effort notifications.
func (d *Directory) Phone(ctx context.Context, userID string) string {
	if d == nil || userID == "" {
		return ""
	}
	user, err := d.users.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Phone
}
