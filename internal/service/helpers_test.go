package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/internal/repository/inmem"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 10:00 on a Friday; "today" for every test below
var testNow = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

var testToday = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *inmem.DB
	bookings *BookingService
	slots    *SlotService
}

type envOption func(*envConfig)

type envConfig struct {
	singleActive bool
	txManager    func(db *inmem.DB) repository.TxManager
	dbOptions    []inmem.Option
}

func withoutSingleActiveBooking() envOption {
	return func(c *envConfig) { c.singleActive = false }
}

func withTxManager(wrap func(db *inmem.DB) repository.TxManager) envOption {
	return func(c *envConfig) { c.txManager = wrap }
}

func withDBOptions(opts ...inmem.Option) envOption {
	return func(c *envConfig) { c.dbOptions = append(c.dbOptions, opts...) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := &envConfig{singleActive: true}
	for _, opt := range opts {
		opt(cfg)
	}

	db := inmem.New(append([]inmem.Option{inmem.WithClock(func() time.Time { return testNow })}, cfg.dbOptions...)...)
	var txManager repository.TxManager = db
	if cfg.txManager != nil {
		txManager = cfg.txManager(db)
	}

	projector := NewProjector()
	bookings := NewBookingService(txManager, NewValidator(cfg.singleActive), projector, time.UTC, zap.NewNop())
	bookings.clock = func() time.Time { return testNow }
	slots := NewSlotService(txManager, projector, time.UTC, zap.NewNop())
	slots.clock = func() time.Time { return testNow }

	return &testEnv{db: db, bookings: bookings, slots: slots}
}

// seedSlot inserts a slot directly so past dates are allowed.
func (e *testEnv) seedSlot(t *testing.T, daysFromToday int, start, end model.TimeOfDay, capacity int) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		SchoolID:         1,
		Date:             testToday.AddDate(0, 0, daysFromToday),
		StartTime:        start,
		EndTime:          end,
		CapacityRequired: capacity,
		Status:           model.SlotStatusOpen,
	}
	err := e.db.WithTx(context.Background(), func(ctx context.Context, repos repository.TxRepositories) error {
		return repos.Slots.Create(ctx, slot)
	})
	require.NoError(t, err)
	return slot
}

func (e *testEnv) slot(t *testing.T, id int64) model.Slot {
	t.Helper()
	slot, ok := e.db.Slot(id)
	require.True(t, ok, "slot %d not stored", id)
	return slot
}

func at(hour, minute int) model.TimeOfDay {
	return model.NewTimeOfDay(hour, minute)
}

// requireCapacityInvariant checks counters and status against the enrollment table.
func (e *testEnv) requireCapacityInvariant(t *testing.T, slotID int64) {
	t.Helper()
	slot := e.slot(t, slotID)

	booked := 0
	for _, en := range e.db.Enrollments() {
		if en.SlotID == slotID && en.Status == model.EnrollmentStatusBooked {
			booked++
		}
	}

	require.LessOrEqual(t, slot.CapacityEnrolled, slot.CapacityRequired)
	if !slot.Status.IsTerminal() {
		require.Equal(t, booked, slot.CapacityEnrolled)
		require.Equal(t, slot.CapacityEnrolled == slot.CapacityRequired, slot.Status == model.SlotStatusFull)
	}
}
