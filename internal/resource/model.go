// Package resource stores custodial resources together with their ownership
// and status histories, and the append-only log of released custody.
package resource

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicate        = errors.New("resource already exists")
	ErrNotOwner         = errors.New("requester is not the current owner")
	ErrSameOwner        = errors.New("resource already belongs to the new owner")
	ErrInvalidStatus    = errors.New("unknown resource status")
	ErrStatusNotAllowed = errors.New("status can only be reached through an ownership change")
)

// Status is the lifecycle state of a resource.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusAvailable   Status = "AVAILABLE"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusSuspended   Status = "SUSPENDED"
	StatusBlocked     Status = "BLOCKED"
	StatusReleased    Status = "RELEASED"
	StatusFailed      Status = "FAILED"
	StatusSuccessful  Status = "SUCCESSFUL"
)

var statuses = []Status{
	StatusActive, StatusAvailable, StatusUnavailable, StatusSuspended,
	StatusBlocked, StatusReleased, StatusFailed, StatusSuccessful,
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// CanSetDirectly reports whether an owner may move a resource into s.
// RELEASED is written only by ownership changes.
func (s Status) CanSetDirectly() bool {
	return s != StatusReleased
}

// OwnershipRecord is one custody handover in a resource's history.
type OwnershipRecord struct {
	OwnerUUID     string    `json:"ownerUuid"`
	PrevOwnerUUID string    `json:"prevOwnerUuid"`
	ActionBy      string    `json:"actionBy"`
	Note          string    `json:"note,omitempty"`
	ChangedAt     time.Time `json:"changedAt"`
}

// StatusChange is one owner-initiated status transition.
type StatusChange struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
}

// Resource is an asset held by exactly one owner at a time.
type Resource struct {
	RUID                    string
	Code                    string
	IdentityNumber          string
	Name                    string
	Kind                    string
	CurrentOwnerUUID        string
	PrevOwnerUUID           string
	Status                  Status
	StatusChangeDetail      string
	OwnershipHistory        []OwnershipRecord
	StatusChangeHistory     []StatusChange
	LastOwnershipChangeDate time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// LogEntry is the immutable record written when custody is released. It
// snapshots the resource as it was before the transfer; UUID is the owner
// who released it.
type LogEntry struct {
	ID                      string
	UUID                    string
	RUID                    string
	Code                    string
	IdentityNumber          string
	Name                    string
	Kind                    string
	StatusChangeDetail      string
	LastOwnershipChangeDate time.Time
	CreatedAt               time.Time
	Status                  Status
	ReleasedDate            time.Time
	NewOwnerUUID            string
	NewOwnerName            string
	ActionBy                string
	Note                    string
}

// OwnerChange asks to hand a resource from its current owner to another user.
type OwnerChange struct {
	ResourceID    string
	RequesterUUID string
	NewOwnerUUID  string
	NewOwnerName  string
	Note          string
}

// StatusUpdate asks to move a resource into a new status.
type StatusUpdate struct {
	ResourceID    string
	RequesterUUID string
	Status        Status
	Reason        string
}

// applyOwnerChange computes the post-transfer resource and the log entry
// describing what was released. r is not modified.
func applyOwnerChange(r Resource, change OwnerChange, entryID string, now time.Time) (Resource, LogEntry, error) {
	if r.CurrentOwnerUUID != change.RequesterUUID {
		return Resource{}, LogEntry{}, ErrNotOwner
	}
	if change.NewOwnerUUID == r.CurrentOwnerUUID {
		return Resource{}, LogEntry{}, ErrSameOwner
	}

	entry := LogEntry{
		ID:                      entryID,
		UUID:                    r.CurrentOwnerUUID,
		RUID:                    r.RUID,
		Code:                    r.Code,
		IdentityNumber:          r.IdentityNumber,
		Name:                    r.Name,
		Kind:                    r.Kind,
		StatusChangeDetail:      r.StatusChangeDetail,
		LastOwnershipChangeDate: r.LastOwnershipChangeDate,
		CreatedAt:               r.CreatedAt,
		Status:                  StatusReleased,
		ReleasedDate:            now,
		NewOwnerUUID:            change.NewOwnerUUID,
		NewOwnerName:            change.NewOwnerName,
		ActionBy:                change.RequesterUUID,
		Note:                    change.Note,
	}

	next := r
	next.OwnershipHistory = append(append([]OwnershipRecord(nil), r.OwnershipHistory...), OwnershipRecord{
		OwnerUUID:     change.NewOwnerUUID,
		PrevOwnerUUID: r.CurrentOwnerUUID,
		ActionBy:      change.RequesterUUID,
		Note:          change.Note,
		ChangedAt:     now,
	})
	next.StatusChangeHistory = append([]StatusChange(nil), r.StatusChangeHistory...)
	next.PrevOwnerUUID = change.RequesterUUID
	next.CurrentOwnerUUID = change.NewOwnerUUID
	next.Status = StatusActive
	next.LastOwnershipChangeDate = now
	next.UpdatedAt = now
	return next, entry, nil
}

// applyStatus computes the resource after an owner-initiated status change.
func applyStatus(r Resource, update StatusUpdate, now time.Time) (Resource, error) {
	if r.CurrentOwnerUUID != update.RequesterUUID {
		return Resource{}, ErrNotOwner
	}
	if !update.Status.CanSetDirectly() {
		return Resource{}, ErrStatusNotAllowed
	}

	next := r
	next.OwnershipHistory = append([]OwnershipRecord(nil), r.OwnershipHistory...)
	next.StatusChangeHistory = append(append([]StatusChange(nil), r.StatusChangeHistory...), StatusChange{
		From:      r.Status,
		To:        update.Status,
		Reason:    update.Reason,
		ChangedBy: update.RequesterUUID,
		ChangedAt: now,
	})
	next.Status = update.Status
	next.StatusChangeDetail = update.Reason
	next.UpdatedAt = now
	return next, nil
}
