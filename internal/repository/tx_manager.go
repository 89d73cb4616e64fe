package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTxManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresTxManager creates a manager whose transactions give up on row locks after
// lockTimeout. Zero leaves the server default.
func NewPostgresTxManager(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresTxManager {
	return &PostgresTxManager{pool: pool, lockTimeout: lockTimeout}
}

func (m *PostgresTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.lockTimeout > 0 {
		timeout := fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	repos := TxRepositories{
		Slots:       NewSlotPostgresRepository(tx),
		Enrollments: NewEnrollmentPostgresRepository(tx),
		Sessions:    NewSessionPostgresRepository(tx),
		Outbox:      NewOutboxPostgresRepository(tx),
	}

	if err := fn(ctx, repos); err != nil {
		// the caller's context may already be done; rollback must still reach the server
		rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rollbackErr := tx.Rollback(rollbackCtx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
