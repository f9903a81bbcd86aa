package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/custody/internal/wallet"
)

const registerAttempts = 5

// Service manages identity lifecycle.
type Service struct {
	repo    Repository
	newCode func() (string, error)
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, newCode: wallet.NewCode}
}

// Register creates a new Tier0 user with a fresh account code and stores a
// hashed PIN.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	phone, err := NormalizePhone(creds.Phone)
	if err != nil {
		return User{}, err
	}
	if err := validatePIN(creds.PIN); err != nil {
		return User{}, err
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return User{}, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var lastErr error
	for i := 0; i < registerAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return User{}, err
		}
		user := User{
			ID:        uuid.NewString(),
			Code:      code,
			Phone:     phone,
			Name:      strings.TrimSpace(creds.Name),
			Tier:      TierZero,
			PINHash:   hash,
			DeviceID:  creds.DeviceID,
			CreatedAt: time.Now().UTC(),
		}
		lastErr = s.repo.Create(ctx, user)
		if lastErr == nil {
			return user, nil
		}
		if !errors.Is(lastErr, ErrDuplicate) {
			return User{}, lastErr
		}
		// A concurrent registration may have taken the phone number.
		if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
			return User{}, ErrDuplicate
		}
	}
	return User{}, lastErr
}

// Authenticate verifies credentials and device binding.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	phone, err := NormalizePhone(creds.Phone)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if user.DeviceID == "" {
		if creds.DeviceID == "" {
			return User{}, ErrDeviceRequired
		}
		if err := s.repo.UpdateDevice(ctx, user.ID, creds.DeviceID); err != nil {
			return User{}, err
		}
		user.DeviceID = creds.DeviceID
	} else if creds.DeviceID != "" && user.DeviceID != creds.DeviceID {
		return User{}, ErrDeviceMismatch
	}

	if user.Tier == TierZero {
		user.Tier = TierOne
	}

	return user, nil
}

// Get returns a user by uuid.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}
