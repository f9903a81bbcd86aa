package identity

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicate          = errors.New("user already exists")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidPIN         = errors.New("PIN must be 4 to 6 digits")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeviceRequired     = errors.New("device binding required")
	ErrDeviceMismatch     = errors.New("device mismatch")
)

const (
	TierZero = "tier0"
	TierOne  = "tier1"
)

// User represents a registered wallet and resource owner.
type User struct {
	ID        string
	Code      string
	Phone     string
	Name      string
	Tier      string
	PINHash   []byte
	DeviceID  string
	CreatedAt time.Time
}

// Credentials carries registration and login input.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
	Name     string
}
