package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/config"
	"github.com/Freeeeeet/slot_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/slot_booking/internal/notify"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App wires services, background tasks and the HTTP server over one TxManager
type App struct {
	Bookings   *service.BookingService
	Slots      *service.SlotService
	Dispatcher *service.OutboxDispatcher

	server    *http.Server
	scheduler *Scheduler
	logger    *zap.Logger
}

func New(cfg *config.Config, txManager repository.TxManager, health httpapi.Pinger, notifier notify.Notifier, logger *zap.Logger) *App {
	projector := service.NewProjector()
	bookings := service.NewBookingService(
		txManager,
		service.NewValidator(cfg.SingleActiveBooking),
		projector,
		cfg.SchoolTimezone,
		logger.Named("booking"),
	)
	slots := service.NewSlotService(txManager, projector, cfg.SchoolTimezone, logger.Named("slots"))
	dispatcher := service.NewOutboxDispatcher(txManager, notifier, logger.Named("outbox"))

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Bookings:       bookings,
		Slots:          slots,
		Health:         health,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.Named("http"),
	})

	scheduler := NewScheduler(logger.Named("scheduler"),
		Task{Name: "complete_due_slots", Interval: cfg.CompletionSweepInterval, Run: slots.CompleteDueSlots},
		Task{Name: "dispatch_outbox", Interval: cfg.OutboxPollInterval, Run: dispatcher.DispatchPending},
	)

	return &App{
		Bookings:   bookings,
		Slots:      slots,
		Dispatcher: dispatcher,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		scheduler: scheduler,
		logger:    logger,
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP and runs background tasks until ctx is cancelled, then shuts both down
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.scheduler.Start(ctx)
		<-ctx.Done()
		a.scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
