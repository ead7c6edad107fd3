// Package scheduler runs the periodic reconciliation sweeps and the daily
// late charge pass in the background of the server process.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/stockledger/backend/internal/application/billing"
	"github.com/stockledger/backend/internal/application/reconciliation"
	"github.com/stockledger/backend/internal/infrastructure/config"
)

// Scheduler triggers the reservation expiry sweep, the consistency audit,
// the daily rollup and the late charge pass on their configured intervals
type Scheduler struct {
	cfg          config.SchedulerConfig
	sweeps       *reconciliation.SweepService
	installments *appbilling.InstallmentService
	logger       *zap.Logger

	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.Mutex
	isRunning       bool
	lastChargeDate  string // Track which date the late charge pass last ran for
	lastRollupStart time.Time
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	cfg config.SchedulerConfig,
	sweeps *reconciliation.SweepService,
	installments *appbilling.InstallmentService,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		sweeps:       sweeps,
		installments: installments,
		logger:       logger,
	}
}

// Start starts the background loops
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.lastRollupStart = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(4)
	go s.expiryLoop(ctx)
	go s.auditLoop(ctx)
	go s.rollupLoop(ctx)
	go s.lateChargeLoop(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("expiry_interval", s.cfg.ExpiryInterval),
		zap.Duration("audit_interval", s.cfg.AuditInterval),
		zap.Duration("rollup_interval", s.cfg.RollupInterval),
		zap.Int("late_charge_hour", s.cfg.LateChargeHour),
	)

	return nil
}

// Stop stops the background loops and waits for in-flight runs to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expiryLoop releases reservations whose expiry timestamp has passed
func (s *Scheduler) expiryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.sweeps.ExpireReservations(ctx, time.Now())
			if err != nil {
				s.logger.Error("Reservation expiry sweep failed", zap.Error(err))
				continue
			}
			if len(result.Released) > 0 {
				s.logger.Info("Reservation expiry sweep released units",
					zap.Int("examined", result.Examined),
					zap.Int("released", len(result.Released)),
				)
			}
		}
	}
}

// auditLoop runs the read-only consistency audit
func (s *Scheduler) auditLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.AuditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.sweeps.AuditConsistency(ctx, time.Now()); err != nil {
				s.logger.Error("Consistency audit failed", zap.Error(err))
			}
		}
	}
}

// rollupLoop produces the periodic inventory rollup report
func (s *Scheduler) rollupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.RollupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			since := s.lastRollupStart
			s.lastRollupStart = time.Now()
			s.mu.Unlock()

			if _, err := s.sweeps.DailyRollup(ctx, since); err != nil {
				s.logger.Error("Rollup report failed", zap.Error(err))
			}
		}
	}
}

// lateChargeLoop checks every minute whether the daily late charge pass is due
func (s *Scheduler) lateChargeLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndApplyLateCharges(ctx)
		}
	}
}

// checkAndApplyLateCharges runs the late charge pass once per day at the
// configured hour
func (s *Scheduler) checkAndApplyLateCharges(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastChargeDate == currentDate
	s.mu.Unlock()

	if alreadyRan || now.Hour() != s.cfg.LateChargeHour {
		return
	}

	s.mu.Lock()
	s.lastChargeDate = currentDate
	s.mu.Unlock()

	result, err := s.installments.ApplyLateCharges(ctx, now)
	if err != nil {
		s.logger.Error("Late charge pass failed", zap.Error(err))
		return
	}
	s.logger.Info("Late charge pass finished",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("updated", result.Updated),
		zap.String("charged", result.Charged.String()),
	)
}
