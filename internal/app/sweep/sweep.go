package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"skirent/internal/app/uow"
)

// Sweeper cancels bookings abandoned mid-payment. A booking that sat in
// inPayment past the TTL will never get its webhook; cancelling releases
// the claimed units back to the pool.
type Sweeper struct {
	UoWFactory uow.UoWFactory
	TTL        time.Duration
	Logger     *slog.Logger

	cron *cron.Cron
}

// Start schedules the sweep; spec is a standard cron expression.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			s.log().Error("payment expiry sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run performs one sweep pass.
func (s *Sweeper) Run(ctx context.Context) error {
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	stale, err := unit.Bookings().ListInPaymentBefore(ctx, now.Add(-s.TTL))
	if err != nil {
		return err
	}
	for _, b := range stale {
		if err := b.Cancel("payment expired", now); err != nil {
			s.log().Warn("stale booking not cancellable", "booking_id", b.ID, "status", b.Status)
			continue
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		s.log().Info("cancelled abandoned payment", "booking_id", b.ID, "reference", b.Reference)
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Sweeper) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
