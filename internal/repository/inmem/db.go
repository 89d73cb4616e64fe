// Package inmem is a transactional in-memory store implementing the repository
// interfaces. Every transaction writes into a private overlay that other transactions
// cannot see; commit merges it into the shared tables and rollback discards it. Slot row
// locks are exclusive and held until commit or rollback.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/google/uuid"
)

type DB struct {
	mu sync.Mutex

	slots       map[int64]*model.Slot
	enrollments map[int64]*model.Enrollment
	sessions    map[int64]*model.Session // by enrollment id
	outbox      []*outboxRow

	slotSeq       int64
	enrollmentSeq int64
	outboxSeq     int64

	locks       map[int64]chan struct{}
	lockTimeout time.Duration
	now         func() time.Time
}

type outboxRow struct {
	event        model.OutboxEvent
	claimedUntil time.Time
}

type Option func(*DB)

// WithLockTimeout bounds how long a transaction waits for a slot lock.
func WithLockTimeout(d time.Duration) Option {
	return func(db *DB) { db.lockTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

func New(opts ...Option) *DB {
	db := &DB{
		slots:       make(map[int64]*model.Slot),
		enrollments: make(map[int64]*model.Enrollment),
		sessions:    make(map[int64]*model.Session),
		locks:       make(map[int64]chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

var _ repository.TxManager = (*DB)(nil)

func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	t := newTx(db)
	defer t.release()

	repos := repository.TxRepositories{
		Slots:       &slotRepository{tx: t},
		Enrollments: &enrollmentRepository{tx: t},
		Sessions:    &sessionRepository{tx: t},
		Outbox:      &outboxRepository{tx: t},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Snapshot accessors for assertions in tests. They read committed state only.

func (db *DB) Slot(id int64) (model.Slot, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.slots[id]
	if !ok {
		return model.Slot{}, false
	}
	return *s, true
}

func (db *DB) Enrollments() []model.Enrollment {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Enrollment, 0, len(db.enrollments))
	for _, e := range db.enrollments {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) Sessions() []model.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Session, 0, len(db.sessions))
	for _, s := range db.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrollmentID < out[j].EnrollmentID })
	return out
}

func (db *DB) OutboxEvents() []model.OutboxEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	rows := append([]*outboxRow(nil), db.outbox...)
	sortOutbox(rows)
	out := make([]model.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.event)
	}
	return out
}

func (db *DB) lockFor(slotID int64) chan struct{} {
	db.mu.Lock()
	defer db.mu.Unlock()
	ch, ok := db.locks[slotID]
	if !ok {
		ch = make(chan struct{}, 1)
		db.locks[slotID] = ch
	}
	return ch
}

// tx holds the writes of one transaction until commit.
type tx struct {
	db   *DB
	held map[int64]chan struct{}

	slots       map[int64]*model.Slot
	enrollments map[int64]*model.Enrollment
	sessions    map[int64]*model.Session
	outboxNew   []*outboxRow
	outboxDirty map[uuid.UUID]*outboxRow
}

func newTx(db *DB) *tx {
	return &tx{
		db:          db,
		held:        make(map[int64]chan struct{}),
		slots:       make(map[int64]*model.Slot),
		enrollments: make(map[int64]*model.Enrollment),
		sessions:    make(map[int64]*model.Session),
		outboxDirty: make(map[uuid.UUID]*outboxRow),
	}
}

// The readers below merge the committed tables with this transaction's own writes.
// They must be called with db.mu held.

func (t *tx) slot(id int64) (*model.Slot, bool) {
	if s, ok := t.slots[id]; ok {
		return s, true
	}
	s, ok := t.db.slots[id]
	return s, ok
}

func (t *tx) eachSlot(fn func(s *model.Slot)) {
	for id, s := range t.db.slots {
		if _, ok := t.slots[id]; !ok {
			fn(s)
		}
	}
	for _, s := range t.slots {
		fn(s)
	}
}

func (t *tx) enrollment(id int64) (*model.Enrollment, bool) {
	if e, ok := t.enrollments[id]; ok {
		return e, true
	}
	e, ok := t.db.enrollments[id]
	return e, ok
}

func (t *tx) eachEnrollment(fn func(e *model.Enrollment)) {
	for id, e := range t.db.enrollments {
		if _, ok := t.enrollments[id]; !ok {
			fn(e)
		}
	}
	for _, e := range t.enrollments {
		fn(e)
	}
}

func (t *tx) session(enrollmentID int64) (*model.Session, bool) {
	if s, ok := t.sessions[enrollmentID]; ok {
		return s, true
	}
	s, ok := t.db.sessions[enrollmentID]
	return s, ok
}

// outboxRows returns the visible outbox in (created_at, seq) order.
func (t *tx) outboxRows() []*outboxRow {
	rows := make([]*outboxRow, 0, len(t.db.outbox)+len(t.outboxNew))
	for _, row := range t.db.outbox {
		if dirty, ok := t.outboxDirty[row.event.ID]; ok {
			rows = append(rows, dirty)
			continue
		}
		rows = append(rows, row)
	}
	rows = append(rows, t.outboxNew...)
	sortOutbox(rows)
	return rows
}

// touchOutbox returns a private copy of a committed row, or the row itself when this
// transaction inserted it.
func (t *tx) touchOutbox(row *outboxRow) *outboxRow {
	for _, own := range t.outboxNew {
		if own == row {
			return row
		}
	}
	if dirty, ok := t.outboxDirty[row.event.ID]; ok {
		return dirty
	}
	c := *row
	t.outboxDirty[row.event.ID] = &c
	return &c
}

// commit checks the unique constraints against rows committed by other transactions and
// merges the overlay into the shared tables.
func (t *tx) commit() error {
	db := t.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, mine := range t.enrollments {
		if mine.Status != model.EnrollmentStatusBooked {
			continue
		}
		for id, other := range db.enrollments {
			if id == mine.ID {
				continue
			}
			if own, ok := t.enrollments[id]; ok {
				other = own
			}
			if other.SlotID == mine.SlotID && other.TeacherID == mine.TeacherID && other.Status == model.EnrollmentStatusBooked {
				return fmt.Errorf("enrollment %d: %w", mine.ID, repository.ErrDuplicate)
			}
		}
	}
	for key, mine := range t.sessions {
		if other, ok := db.sessions[key]; ok && other.ID != mine.ID {
			return fmt.Errorf("session for enrollment %d: %w", key, repository.ErrDuplicate)
		}
	}

	for id, s := range t.slots {
		db.slots[id] = s
	}
	for id, e := range t.enrollments {
		db.enrollments[id] = e
	}
	for key, s := range t.sessions {
		db.sessions[key] = s
	}
	for i, row := range db.outbox {
		if dirty, ok := t.outboxDirty[row.event.ID]; ok {
			db.outbox[i] = dirty
		}
	}
	db.outbox = append(db.outbox, t.outboxNew...)
	return nil
}

func (t *tx) release() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

// lock blocks until the slot lock is acquired, the context ends or the lock timeout
// elapses.
func (t *tx) lock(ctx context.Context, slotID int64) error {
	if _, ok := t.held[slotID]; ok {
		return nil
	}
	ch := t.db.lockFor(slotID)

	var timeout <-chan time.Time
	if t.db.lockTimeout > 0 {
		timer := time.NewTimer(t.db.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
		t.held[slotID] = ch
		return nil
	case <-timeout:
		return fmt.Errorf("lock slot %d: %w", slotID, repository.ErrLockTimeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("lock slot %d: %w", slotID, repository.ErrLockTimeout)
		}
		return fmt.Errorf("lock slot %d: %w", slotID, ctx.Err())
	}
}

// tryLock acquires the slot lock only if it is free.
func (t *tx) tryLock(slotID int64) bool {
	if _, ok := t.held[slotID]; ok {
		return true
	}
	ch := t.db.lockFor(slotID)
	select {
	case ch <- struct{}{}:
		t.held[slotID] = ch
		return true
	default:
		return false
	}
}

func sortOutbox(rows []*outboxRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].event, rows[j].event
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
}

func copySlot(s *model.Slot) *model.Slot {
	c := *s
	return &c
}

func copyEnrollment(e *model.Enrollment) *model.Enrollment {
	c := *e
	return &c
}

func copySession(s *model.Session) *model.Session {
	c := *s
	return &c
}
