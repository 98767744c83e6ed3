package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/thermlog/internal/capability"
)

// Repository persists participants.
type Repository interface {
	// List returns every participant ordered by id.
	List(ctx context.Context) ([]Participant, error)

	// Save inserts or replaces a participant and its domains, keyed by name.
	// Any other participant holding the same id is removed, since the host
	// has recycled it.
	Save(ctx context.Context, p Participant) error

	// SetPresent flips the present flag of the participant with the given id.
	// Returns ErrParticipantNotFound if no participant holds the id.
	SetPresent(ctx context.Context, id uint32, present bool) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns every participant ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, id, present, updated_at FROM participants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	index := make(map[string]int)
	for rows.Next() {
		var (
			p         Participant
			present   int
			updatedAt string
		)
		if err := rows.Scan(&p.Name, &p.ID, &present, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		p.Present = present != 0
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // written by Save
		index[p.Name] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating participants: %w", err)
	}

	subRows, err := r.db.QueryContext(ctx,
		`SELECT participant_name, idx, capability_mask, binding FROM sub_devices ORDER BY participant_name, idx`)
	if err != nil {
		return nil, fmt.Errorf("querying sub-devices: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			name string
			sd   SubDevice
			mask int64
		)
		if err := subRows.Scan(&name, &sd.Index, &mask, &sd.Binding); err != nil {
			return nil, fmt.Errorf("scanning sub-device: %w", err)
		}
		sd.CapabilityMask = capability.Mask(mask)
		if i, ok := index[name]; ok {
			out[i].SubDevices = append(out[i].SubDevices, sd)
		}
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sub-devices: %w", err)
	}
	return out, nil
}

// Save inserts or replaces a participant and its domains.
func (r *SQLiteRepository) Save(ctx context.Context, p Participant) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM participants WHERE id = ? AND name != ?`, p.ID, p.Name); err != nil {
		return fmt.Errorf("releasing recycled id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO participants (name, id, present, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET id = excluded.id, present = excluded.present, updated_at = excluded.updated_at`,
		p.Name, p.ID, boolToInt(p.Present), p.UpdatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("saving participant: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sub_devices WHERE participant_name = ?`, p.Name); err != nil {
		return fmt.Errorf("clearing sub-devices: %w", err)
	}
	for _, sd := range p.SubDevices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sub_devices (participant_name, idx, capability_mask, binding) VALUES (?, ?, ?, ?)`,
			p.Name, sd.Index, int64(sd.CapabilityMask), sd.Binding,
		); err != nil {
			return fmt.Errorf("saving sub-device %d: %w", sd.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing participant: %w", err)
	}
	return nil
}

// SetPresent flips the present flag of the participant with the given id.
func (r *SQLiteRepository) SetPresent(ctx context.Context, id uint32, present bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE participants SET present = ?, updated_at = ? WHERE id = ?`,
		boolToInt(present), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrParticipantNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
