package resource

import "context"

// Registry persists resources and their ownership log. ChangeOwner and
// SetStatus check the requester against the stored owner and apply the
// change as one unit, serialized per resource.
type Registry interface {
	Create(ctx context.Context, r Resource) error
	// Get resolves id as a ruid, then a code, then an identity number.
	Get(ctx context.Context, id string) (Resource, error)
	ListByOwner(ctx context.Context, ownerUUID string) ([]Resource, error)
	ChangeOwner(ctx context.Context, change OwnerChange) (Resource, LogEntry, error)
	SetStatus(ctx context.Context, update StatusUpdate) (Resource, error)
	// LogByOwner lists entries released by ownerUUID, newest first.
	LogByOwner(ctx context.Context, ownerUUID string) ([]LogEntry, error)
}
