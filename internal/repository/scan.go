package repository

import (
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/jackc/pgx/v5/pgtype"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

func toPgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func fromPgTime(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(t.Microseconds / microsPerMinute)
}

func toPgDate(d time.Time) pgtype.Date {
	return pgtype.Date{Time: d, Valid: true}
}

// DATE columns come back at midnight UTC already; this keeps it explicit.
func fromPgDate(d pgtype.Date) time.Time {
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

type rowScanner interface {
	Scan(dest ...any) error
}
