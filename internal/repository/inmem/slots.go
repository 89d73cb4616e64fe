package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
)

type slotRepository struct {
	tx *tx
}

func (r *slotRepository) Create(_ context.Context, slot *model.Slot) error {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	db.slotSeq++
	now := db.now()
	slot.ID = db.slotSeq
	slot.CreatedAt = now
	slot.UpdatedAt = now
	r.tx.slots[slot.ID] = copySlot(slot)
	return nil
}

func (r *slotRepository) GetByID(_ context.Context, id int64) (*model.Slot, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := r.tx.slot(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySlot(s), nil
}

func (r *slotRepository) GetForUpdate(ctx context.Context, id int64) (*model.Slot, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.tx.lock(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// update locks the slot like an UPDATE would, then applies fn to a private copy.
func (r *slotRepository) update(ctx context.Context, id int64, fn func(s *model.Slot) error) (*model.Slot, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.tx.lock(ctx, id); err != nil {
		return nil, err
	}

	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	current, ok := r.tx.slot(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	next := copySlot(current)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = db.now()
	r.tx.slots[id] = next
	return copySlot(next), nil
}

func (r *slotRepository) IncrementEnrollment(ctx context.Context, id int64) (*model.Slot, error) {
	return r.update(ctx, id, func(s *model.Slot) error {
		if s.Status != model.SlotStatusOpen || !s.HasCapacity() {
			return repository.ErrCapacityExceeded
		}
		s.CapacityEnrolled++
		s.Status = model.RecomputeStatus(s.Status, s.CapacityEnrolled, s.CapacityRequired)
		return nil
	})
}

func (r *slotRepository) DecrementEnrollment(ctx context.Context, id int64) (*model.Slot, error) {
	return r.update(ctx, id, func(s *model.Slot) error {
		if s.CapacityEnrolled == 0 {
			return repository.ErrNotFound
		}
		s.CapacityEnrolled--
		s.Status = model.RecomputeStatus(s.Status, s.CapacityEnrolled, s.CapacityRequired)
		return nil
	})
}

func (r *slotRepository) UpdateStatus(ctx context.Context, id int64, status model.SlotStatus) error {
	_, err := r.update(ctx, id, func(s *model.Slot) error {
		s.Status = status
		return nil
	})
	return err
}

func (r *slotRepository) ListOpen(_ context.Context, schoolID int64, from, to time.Time) ([]*model.Slot, error) {
	db := r.tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	var slots []*model.Slot
	r.tx.eachSlot(func(s *model.Slot) {
		if s.SchoolID != schoolID || s.Status != model.SlotStatusOpen {
			return
		}
		if s.Date.Before(from) || s.Date.After(to) {
			return
		}
		slots = append(slots, copySlot(s))
	})
	sortSlots(slots)
	return slots, nil
}

func (r *slotRepository) LockDueForCompletion(ctx context.Context, today time.Time, limit int) ([]*model.Slot, error) {
	db := r.tx.db
	db.mu.Lock()
	var due []*model.Slot
	r.tx.eachSlot(func(s *model.Slot) {
		if s.Status.IsTerminal() || !s.Date.Before(today) {
			return
		}
		due = append(due, copySlot(s))
	})
	db.mu.Unlock()
	sortSlots(due)

	locked := make([]*model.Slot, 0, len(due))
	for _, s := range due {
		if len(locked) == limit {
			break
		}
		if !r.tx.tryLock(s.ID) {
			continue
		}
		// re-read under the lock; a concurrent transaction may have moved it on
		fresh, err := r.GetByID(ctx, s.ID)
		if err != nil || fresh.Status.IsTerminal() {
			continue
		}
		locked = append(locked, fresh)
	}
	return locked, nil
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].ID < slots[j].ID
	})
}
