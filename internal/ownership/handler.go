package ownership

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/apperr"
	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/history"
	"github.com/congo-pay/custody/internal/resource"
)

// Handler exposes resource custody endpoints. Every route acts on behalf of
// the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler constructs an ownership handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	IdentityNumber string `json:"identityNumber"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
}

type transferRequest struct {
	NewOwner string `json:"newOwner"`
	Note     string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ResourceResponse is the public representation of a resource.
type ResourceResponse struct {
	RUID                    string                     `json:"ruid"`
	Code                    string                     `json:"code"`
	IdentityNumber          string                     `json:"identityNumber"`
	Name                    string                     `json:"name"`
	Kind                    string                     `json:"kind,omitempty"`
	CurrentOwnerUUID        string                     `json:"currentOwnerUuid"`
	PrevOwnerUUID           string                     `json:"prevOwnerUuid,omitempty"`
	Status                  resource.Status            `json:"status"`
	StatusChangeDetail      string                     `json:"statusChangeDetail,omitempty"`
	OwnershipHistory        []resource.OwnershipRecord `json:"ownershipHistory"`
	StatusChangeHistory     []resource.StatusChange    `json:"statusChangeHistory"`
	LastOwnershipChangeDate time.Time                  `json:"lastOwnershipChangeDate"`
	CreatedAt               time.Time                  `json:"createdAt"`
}

// LogEntryResponse is the public representation of an ownership log entry.
type LogEntryResponse struct {
	ID                      string          `json:"id"`
	UUID                    string          `json:"uuid"`
	RUID                    string          `json:"ruid"`
	Code                    string          `json:"code"`
	IdentityNumber          string          `json:"identityNumber"`
	Name                    string          `json:"name"`
	Kind                    string          `json:"kind,omitempty"`
	StatusChangeDetail      string          `json:"statusChangeDetail,omitempty"`
	LastOwnershipChangeDate time.Time       `json:"lastOwnershipChangeDate"`
	Status                  resource.Status `json:"status"`
	ReleasedDate            time.Time       `json:"releasedDate"`
	NewOwnerUUID            string          `json:"newOwnerUuid"`
	NewOwnerName            string          `json:"newOwnerName"`
	ActionBy                string          `json:"actionBy"`
	Note                    string          `json:"note,omitempty"`
}

func toResourceResponse(r resource.Resource) ResourceResponse {
	owners := r.OwnershipHistory
	if owners == nil {
		owners = []resource.OwnershipRecord{}
	}
	statuses := r.StatusChangeHistory
	if statuses == nil {
		statuses = []resource.StatusChange{}
	}
	return ResourceResponse{
		RUID:                    r.RUID,
		Code:                    r.Code,
		IdentityNumber:          r.IdentityNumber,
		Name:                    r.Name,
		Kind:                    r.Kind,
		CurrentOwnerUUID:        r.CurrentOwnerUUID,
		PrevOwnerUUID:           r.PrevOwnerUUID,
		Status:                  r.Status,
		StatusChangeDetail:      r.StatusChangeDetail,
		OwnershipHistory:        owners,
		StatusChangeHistory:     statuses,
		LastOwnershipChangeDate: r.LastOwnershipChangeDate,
		CreatedAt:               r.CreatedAt,
	}
}

func toLogEntryResponse(e resource.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:                      e.ID,
		UUID:                    e.UUID,
		RUID:                    e.RUID,
		Code:                    e.Code,
		IdentityNumber:          e.IdentityNumber,
		Name:                    e.Name,
		Kind:                    e.Kind,
		StatusChangeDetail:      e.StatusChangeDetail,
		LastOwnershipChangeDate: e.LastOwnershipChangeDate,
		Status:                  e.Status,
		ReleasedDate:            e.ReleasedDate,
		NewOwnerUUID:            e.NewOwnerUUID,
		NewOwnerName:            e.NewOwnerName,
		ActionBy:                e.ActionBy,
		Note:                    e.Note,
	}
}

// Register records a resource owned by the caller.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	r, err := h.service.Register(c.UserContext(), RegisterInput{
		OwnerUUID:      auth.UserID(c),
		IdentityNumber: req.IdentityNumber,
		Name:           req.Name,
		Kind:           req.Kind,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(apperr.OK(toResourceResponse(r)))
}

// Get returns the resource at :id.
func (h *Handler) Get(c *fiber.Ctx) error {
	r, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(toResourceResponse(r)))
}

// ListOwned returns the caller's resources.
func (h *Handler) ListOwned(c *fiber.Ctx) error {
	out, err := h.service.ListOwned(c.UserContext(), auth.UserID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(history.Map(out, toResourceResponse)))
}

// Transfer hands the resource at :id to another user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	entry, err := h.service.ChangeOwnership(c.UserContext(), ChangeInput{
		RequesterUUID:      auth.UserID(c),
		ResourceID:         c.Params("id"),
		NewOwnerIdentifier: req.NewOwner,
		Note:               req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(toLogEntryResponse(entry)))
}

// UpdateStatus moves the resource at :id into a new status.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	r, err := h.service.UpdateStatus(c.UserContext(), StatusInput{
		RequesterUUID: auth.UserID(c),
		ResourceID:    c.Params("id"),
		Status:        req.Status,
		Reason:        req.Reason,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(toResourceResponse(r)))
}

// History lists the custody releases made by the caller.
func (h *Handler) History(c *fiber.Ctx) error {
	out, err := h.service.History(c.UserContext(), auth.UserID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(apperr.OK(history.Map(out, toLogEntryResponse)))
}
