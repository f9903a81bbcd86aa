package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry stores resources in PostgreSQL with their histories as
// JSONB arrays. Mutations lock the resource row for the whole transaction.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry builds a registry backed by PostgreSQL.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

const resourceColumns = `ruid::text, code, identity_number, name, kind, current_owner_uuid::text,
        COALESCE(prev_owner_uuid::text, ''), status, status_change_detail, ownership_history, status_change_history,
        last_ownership_change_date, created_at, updated_at`

const logColumns = `id::text, uuid::text, ruid::text, code, identity_number, name, kind, status_change_detail,
        last_ownership_change_date, created_at, status, released_date, new_owner_uuid::text, new_owner_name, action_by::text, note`

// Priority mirrors MemoryRegistry.resolve: ruid, then code, then identity number.
const resolveClause = `WHERE ruid::text = $1 OR code = $1 OR identity_number = $1
        ORDER BY CASE WHEN ruid::text = $1 THEN 0 WHEN code = $1 THEN 1 ELSE 2 END
        LIMIT 1`

func (p *PostgresRegistry) Create(ctx context.Context, r Resource) error {
	owners, statuses, err := encodeHistories(r)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `INSERT INTO resources
        (ruid, code, identity_number, name, kind, current_owner_uuid, prev_owner_uuid, status, status_change_detail,
         ownership_history, status_change_history, last_ownership_change_date, created_at, updated_at)
        VALUES ($1::uuid, $2, $3, $4, $5, $6::uuid, NULLIF($7, '')::uuid, $8, $9, $10::jsonb, $11::jsonb, $12, $13, $14)`,
		r.RUID, r.Code, r.IdentityNumber, r.Name, r.Kind, r.CurrentOwnerUUID, r.PrevOwnerUUID, string(r.Status),
		r.StatusChangeDetail, owners, statuses, r.LastOwnershipChangeDate.UTC(), r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (p *PostgresRegistry) Get(ctx context.Context, id string) (Resource, error) {
	return scanResource(p.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources `+resolveClause, id))
}

func (p *PostgresRegistry) ListByOwner(ctx context.Context, ownerUUID string) ([]Resource, error) {
	ownerID, err := uuid.Parse(ownerUUID)
	if err != nil {
		return nil, nil
	}
	rows, err := p.db.Query(ctx, `SELECT `+resourceColumns+` FROM resources
        WHERE current_owner_uuid = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresRegistry) ChangeOwner(ctx context.Context, change OwnerChange) (Resource, LogEntry, error) {
	var (
		next  Resource
		entry LogEntry
	)
	err := p.inTx(ctx, change.ResourceID, func(tx pgx.Tx, current Resource, now time.Time) error {
		var err error
		next, entry, err = applyOwnerChange(current, change, uuid.NewString(), now)
		if err != nil {
			return err
		}
		if err := updateResource(ctx, tx, next); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO ownership_log
            (id, uuid, ruid, code, identity_number, name, kind, status_change_detail, last_ownership_change_date,
             created_at, status, released_date, new_owner_uuid, new_owner_name, action_by, note)
            VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::uuid, $14, $15::uuid, $16)`,
			entry.ID, entry.UUID, entry.RUID, entry.Code, entry.IdentityNumber, entry.Name, entry.Kind,
			entry.StatusChangeDetail, entry.LastOwnershipChangeDate.UTC(), entry.CreatedAt.UTC(), string(entry.Status),
			entry.ReleasedDate, entry.NewOwnerUUID, entry.NewOwnerName, entry.ActionBy, entry.Note)
		return err
	})
	if err != nil {
		return Resource{}, LogEntry{}, err
	}
	return next, entry, nil
}

func (p *PostgresRegistry) SetStatus(ctx context.Context, update StatusUpdate) (Resource, error) {
	var next Resource
	err := p.inTx(ctx, update.ResourceID, func(tx pgx.Tx, current Resource, now time.Time) error {
		var err error
		if next, err = applyStatus(current, update, now); err != nil {
			return err
		}
		return updateResource(ctx, tx, next)
	})
	if err != nil {
		return Resource{}, err
	}
	return next, nil
}

func (p *PostgresRegistry) LogByOwner(ctx context.Context, ownerUUID string) ([]LogEntry, error) {
	ownerID, err := uuid.Parse(ownerUUID)
	if err != nil {
		return nil, nil
	}
	rows, err := p.db.Query(ctx, `SELECT `+logColumns+` FROM ownership_log
        WHERE uuid = $1 ORDER BY released_date DESC, seq DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e      LogEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.UUID, &e.RUID, &e.Code, &e.IdentityNumber, &e.Name, &e.Kind, &e.StatusChangeDetail,
			&e.LastOwnershipChangeDate, &e.CreatedAt, &status, &e.ReleasedDate, &e.NewOwnerUUID, &e.NewOwnerName,
			&e.ActionBy, &e.Note); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		e.LastOwnershipChangeDate = e.LastOwnershipChangeDate.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		e.ReleasedDate = e.ReleasedDate.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// inTx locks the resolved resource row and runs fn against it. The
// transaction commits only when fn succeeds.
func (p *PostgresRegistry) inTx(ctx context.Context, id string, fn func(tx pgx.Tx, current Resource, now time.Time) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := scanResource(tx.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources `+resolveClause+` FOR UPDATE`, id))
	if err != nil {
		return err
	}
	if err := fn(tx, current, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func updateResource(ctx context.Context, tx pgx.Tx, r Resource) error {
	owners, statuses, err := encodeHistories(r)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE resources SET current_owner_uuid = $1::uuid, prev_owner_uuid = NULLIF($2, '')::uuid,
        status = $3, status_change_detail = $4, ownership_history = $5::jsonb, status_change_history = $6::jsonb,
        last_ownership_change_date = $7, updated_at = $8
        WHERE ruid = $9::uuid`,
		r.CurrentOwnerUUID, r.PrevOwnerUUID, string(r.Status), r.StatusChangeDetail, owners, statuses,
		r.LastOwnershipChangeDate, r.UpdatedAt, r.RUID)
	return err
}

func encodeHistories(r Resource) (string, string, error) {
	owners := r.OwnershipHistory
	if owners == nil {
		owners = []OwnershipRecord{}
	}
	statuses := r.StatusChangeHistory
	if statuses == nil {
		statuses = []StatusChange{}
	}
	o, err := json.Marshal(owners)
	if err != nil {
		return "", "", fmt.Errorf("encode ownership history: %w", err)
	}
	s, err := json.Marshal(statuses)
	if err != nil {
		return "", "", fmt.Errorf("encode status history: %w", err)
	}
	return string(o), string(s), nil
}

func scanResource(row pgx.Row) (Resource, error) {
	var (
		r                Resource
		status           string
		owners, statuses []byte
	)
	err := row.Scan(&r.RUID, &r.Code, &r.IdentityNumber, &r.Name, &r.Kind, &r.CurrentOwnerUUID, &r.PrevOwnerUUID,
		&status, &r.StatusChangeDetail, &owners, &statuses, &r.LastOwnershipChangeDate, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	if err != nil {
		return Resource{}, err
	}
	if err := json.Unmarshal(owners, &r.OwnershipHistory); err != nil {
		return Resource{}, fmt.Errorf("decode ownership history: %w", err)
	}
	if err := json.Unmarshal(statuses, &r.StatusChangeHistory); err != nil {
		return Resource{}, fmt.Errorf("decode status history: %w", err)
	}
	r.Status = Status(status)
	r.LastOwnershipChangeDate = r.LastOwnershipChangeDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}
