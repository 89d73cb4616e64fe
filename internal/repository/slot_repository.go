package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository/base"
	"github.com/jackc/pgx/v5/pgtype"
)

const slotColumns = `id, school_id, date, start_time, end_time, capacity_required, capacity_enrolled, status, created_at, updated_at`

type SlotPostgresRepository struct {
	base.Repository
}

func NewSlotPostgresRepository(q base.Querier) *SlotPostgresRepository {
	return &SlotPostgresRepository{Repository: base.NewRepository(q)}
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var (
		slot       model.Slot
		date       pgtype.Date
		start, end pgtype.Time
	)
	err := row.Scan(
		&slot.ID,
		&slot.SchoolID,
		&date,
		&start,
		&end,
		&slot.CapacityRequired,
		&slot.CapacityEnrolled,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Date = fromPgDate(date)
	slot.StartTime = fromPgTime(start)
	slot.EndTime = fromPgTime(end)
	return &slot, nil
}

// Create inserts a new slot
func (r *SlotPostgresRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (school_id, date, start_time, end_time, capacity_required, capacity_enrolled, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.Q().QueryRow(
		ctx, query,
		slot.SchoolID,
		toPgDate(slot.Date),
		toPgTime(slot.StartTime),
		toPgTime(slot.EndTime),
		slot.CapacityRequired,
		slot.CapacityEnrolled,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID reads a slot without locking it
func (r *SlotPostgresRepository) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetForUpdate reads a slot and holds its row lock until the transaction ends
func (r *SlotPostgresRepository) GetForUpdate(ctx context.Context, id int64) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		switch {
		case base.IsNotFound(err):
			return nil, ErrNotFound
		case base.IsLockTimeout(err):
			return nil, fmt.Errorf("lock slot %d: %w", id, ErrLockTimeout)
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}

	return slot, nil
}

// IncrementEnrollment takes one seat and recomputes the status in the same statement
func (r *SlotPostgresRepository) IncrementEnrollment(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET capacity_enrolled = capacity_enrolled + 1,
		    status = CASE WHEN capacity_enrolled + 1 >= capacity_required THEN 'full' ELSE 'open' END,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'open'
		  AND capacity_enrolled < capacity_required
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrCapacityExceeded
		}
		if base.PgCode(err) == base.CodeCheckViolation {
			return nil, ErrCapacityExceeded
		}
		return nil, fmt.Errorf("increment slot enrollment: %w", err)
	}

	return slot, nil
}

// DecrementEnrollment releases one seat; a full slot becomes open again
func (r *SlotPostgresRepository) DecrementEnrollment(ctx context.Context, id int64) (*model.Slot, error) {
	query := `
		UPDATE slots
		SET capacity_enrolled = capacity_enrolled - 1,
		    status = CASE WHEN status IN ('open', 'full') THEN 'open' ELSE status END,
		    updated_at = now()
		WHERE id = $1
		  AND capacity_enrolled > 0
		RETURNING ` + slotColumns

	slot, err := scanSlot(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("decrement slot enrollment: %w", err)
	}

	return slot, nil
}

// UpdateStatus sets the slot status
func (r *SlotPostgresRepository) UpdateStatus(ctx context.Context, id int64, status model.SlotStatus) error {
	query := `
		UPDATE slots
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListOpen returns bookable slots of a school between from and to (inclusive dates)
func (r *SlotPostgresRepository) ListOpen(ctx context.Context, schoolID int64, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE school_id = $1
		  AND status = 'open'
		  AND date >= $2
		  AND date <= $3
		ORDER BY date, start_time
	`

	rows, err := r.Q().Query(ctx, query, schoolID, toPgDate(from), toPgDate(to))
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// LockDueForCompletion locks past slots that have not reached a terminal status
func (r *SlotPostgresRepository) LockDueForCompletion(ctx context.Context, today time.Time, limit int) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE status IN ('open', 'full')
		  AND date < $1
		ORDER BY date, start_time
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.Q().Query(ctx, query, toPgDate(today), limit)
	if err != nil {
		return nil, fmt.Errorf("lock slots due for completion: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}
