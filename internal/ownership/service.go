package ownership

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/resource"
)

const (
	operationRegister    = "register"
	operationChangeOwner = "change_owner"
	operationSetStatus   = "set_status"
	registerAttempts     = 5
)

// Resolver finds the user an identifier refers to.
type Resolver interface {
	Lookup(ctx context.Context, identifier string) (identity.User, error)
}

// Service orchestrates custody transfers and status changes over a
// resource registry. It holds no state of its own.
type Service struct {
	registry   resource.Registry
	users      Resolver
	dispatcher *notification.Dispatcher
	contacts   notification.Contacts
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Dispatcher *notification.Dispatcher
	Contacts   notification.Contacts
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewService wires an ownership service.
func NewService(registry resource.Registry, users Resolver, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		registry:   registry,
		users:      users,
		dispatcher: opts.Dispatcher,
		contacts:   opts.Contacts,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// RegisterInput describes a new resource entering custody.
type RegisterInput struct {
	OwnerUUID      string
	IdentityNumber string
	Name           string
	Kind           string
}

// Register records a resource owned by OwnerUUID in the ACTIVE state.
func (s *Service) Register(ctx context.Context, input RegisterInput) (r resource.Resource, err error) {
	defer func() { s.metrics.ObserveOwnership(operationRegister, err) }()

	input.IdentityNumber = strings.TrimSpace(input.IdentityNumber)
	input.Name = strings.TrimSpace(input.Name)
	if input.IdentityNumber == "" || input.Name == "" {
		return resource.Resource{}, apperr.Validation("identityNumber and name are required")
	}
	if _, err := uuid.Parse(input.OwnerUUID); err != nil {
		return resource.Resource{}, apperr.Validation("invalid owner uuid")
	}

	for i := 0; i < registerAttempts; i++ {
		code, err := newResourceCode()
		if err != nil {
			return resource.Resource{}, apperr.Internal(err)
		}
		now := time.Now().UTC()
		r = resource.Resource{
			RUID:                    uuid.NewString(),
			Code:                    code,
			IdentityNumber:          input.IdentityNumber,
			Name:                    input.Name,
			Kind:                    strings.TrimSpace(input.Kind),
			CurrentOwnerUUID:        input.OwnerUUID,
			Status:                  resource.StatusActive,
			LastOwnershipChangeDate: now,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		err = s.registry.Create(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, resource.ErrDuplicate) {
			return resource.Resource{}, s.translate(err, input.IdentityNumber)
		}
		// A taken identity number is final; a taken code is retried.
		if _, lookupErr := s.registry.Get(ctx, input.IdentityNumber); lookupErr == nil {
			return resource.Resource{}, apperr.Conflict("resource already registered", err)
		}
	}
	return resource.Resource{}, apperr.Conflict("could not allocate a resource code", resource.ErrDuplicate)
}

// Get returns a resource by ruid, code or identity number.
func (s *Service) Get(ctx context.Context, id string) (resource.Resource, error) {
	r, err := s.registry.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return resource.Resource{}, s.translate(err, id)
	}
	return r, nil
}

// ListOwned returns the resources currently held by ownerUUID.
func (s *Service) ListOwned(ctx context.Context, ownerUUID string) ([]resource.Resource, error) {
	out, err := s.registry.ListByOwner(ctx, ownerUUID)
	if err != nil {
		return nil, s.translate(err, ownerUUID)
	}
	return out, nil
}

// ChangeInput asks to hand a resource to another user.
type ChangeInput struct {
	RequesterUUID      string
	ResourceID         string
	NewOwnerIdentifier string
	Note               string
}

// ChangeOwnership transfers custody from the requester to the user the
// identifier resolves to, and returns the log entry of the release.
func (s *Service) ChangeOwnership(ctx context.Context, input ChangeInput) (entry resource.LogEntry, err error) {
	defer func() { s.metrics.ObserveOwnership(operationChangeOwner, err) }()

	if input.RequesterUUID == "" {
		return resource.LogEntry{}, apperr.Unauthorized("requester is required", nil)
	}
	current, err := s.registry.Get(ctx, strings.TrimSpace(input.ResourceID))
	if err != nil {
		return resource.LogEntry{}, s.translate(err, input.ResourceID)
	}
	if current.CurrentOwnerUUID != input.RequesterUUID {
		return resource.LogEntry{}, apperr.Unauthorized("requester is not the current owner", resource.ErrNotOwner)
	}

	newOwner, err := s.users.Lookup(ctx, input.NewOwnerIdentifier)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return resource.LogEntry{}, apperr.NotFound("new owner not found", err)
		}
		return resource.LogEntry{}, s.translate(err, input.NewOwnerIdentifier)
	}
	if newOwner.ID == input.RequesterUUID {
		return resource.LogEntry{}, apperr.Conflict("resource already belongs to the new owner", resource.ErrSameOwner)
	}

	_, entry, err = s.registry.ChangeOwner(context.WithoutCancel(ctx), resource.OwnerChange{
		ResourceID:    current.RUID,
		RequesterUUID: input.RequesterUUID,
		NewOwnerUUID:  newOwner.ID,
		NewOwnerName:  newOwner.Name,
		Note:          strings.TrimSpace(input.Note),
	})
	if err != nil {
		return resource.LogEntry{}, s.translate(err, current.RUID)
	}

	s.notify(ctx, newOwner, entry)
	return entry, nil
}

// StatusInput asks to move a resource into a new status.
type StatusInput struct {
	RequesterUUID string
	ResourceID    string
	Status        string
	Reason        string
}

// UpdateStatus applies an owner-initiated status transition.
func (s *Service) UpdateStatus(ctx context.Context, input StatusInput) (r resource.Resource, err error) {
	defer func() { s.metrics.ObserveOwnership(operationSetStatus, err) }()

	status, err := resource.ParseStatus(input.Status)
	if err != nil {
		return resource.Resource{}, apperr.Validation(err.Error())
	}
	if !status.CanSetDirectly() {
		return resource.Resource{}, apperr.Validation(resource.ErrStatusNotAllowed.Error())
	}
	if input.RequesterUUID == "" {
		return resource.Resource{}, apperr.Unauthorized("requester is required", nil)
	}

	r, err = s.registry.SetStatus(context.WithoutCancel(ctx), resource.StatusUpdate{
		ResourceID:    strings.TrimSpace(input.ResourceID),
		RequesterUUID: input.RequesterUUID,
		Status:        status,
		Reason:        strings.TrimSpace(input.Reason),
	})
	if err != nil {
		return resource.Resource{}, s.translate(err, input.ResourceID)
	}
	return r, nil
}

// History lists the custody releases made by ownerUUID, newest first.
func (s *Service) History(ctx context.Context, ownerUUID string) ([]resource.LogEntry, error) {
	out, err := s.registry.LogByOwner(ctx, ownerUUID)
	if err != nil {
		return nil, s.translate(err, ownerUUID)
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, newOwner identity.User, entry resource.LogEntry) {
	if s.dispatcher == nil {
		return
	}
	destination := newOwner.Phone
	if destination == "" && s.contacts != nil {
		destination = s.contacts.Phone(ctx, newOwner.ID)
	}
	s.dispatcher.Dispatch(notification.Message{
		Kind:        notification.KindOwnershipReceived,
		Destination: destination,
		Body:        fmt.Sprintf("%s (%s) has been transferred to you.", entry.Name, entry.Code),
	})
}

func (s *Service) translate(err error, subject string) error {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		return apperr.NotFound("resource not found", err)
	case errors.Is(err, resource.ErrNotOwner):
		return apperr.Unauthorized("requester is not the current owner", err)
	case errors.Is(err, resource.ErrSameOwner):
		return apperr.Conflict("resource already belongs to the new owner", err)
	case errors.Is(err, resource.ErrDuplicate):
		return apperr.Conflict("resource already registered", err)
	case errors.Is(err, resource.ErrStatusNotAllowed), errors.Is(err, resource.ErrInvalidStatus):
		return apperr.Validation(err.Error())
	default:
		s.logger.Error("ownership operation failed", "subject", subject, "error", err)
		return apperr.Persistence(err)
	}
}

func newResourceCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RS%08d", n.Int64()), nil
}
