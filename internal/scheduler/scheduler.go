// Package scheduler runs the recurring billing loop in the background.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tradingacademy/backend/internal/services"
	"gorm.io/gorm"
)

// billingLockID keys the postgres advisory lock that keeps concurrent
// replicas from running the same billing tick.
const billingLockID = 0x5442494C // "TBIL"

// Scheduler ticks at the configured interval and hands each run to the
// recurring payment service. Safe to Start/Stop once each.
type Scheduler struct {
	db        *gorm.DB
	recurring *services.RecurringPaymentService
	interval  time.Duration
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
}

func New(db *gorm.DB, recurring *services.RecurringPaymentService, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:        db,
		recurring: recurring,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	slog.Info("billing scheduler started", "interval", s.interval)
	s.wg.Add(1)
	go s.run()
}

// Stop waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	slog.Info("billing scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !s.acquireLock() {
		slog.Info("billing tick skipped, another instance holds the lock")
		return
	}
	defer s.releaseLock()

	processed, failed, err := s.recurring.ProcessDuePayments(ctx)
	if err != nil {
		slog.Error("billing tick failed", "error", err)
		return
	}
	if processed+failed > 0 {
		slog.Info("billing tick done", "processed", processed, "failed", failed)
	}
}

// acquireLock takes the cross-instance advisory lock. Non-postgres
// deployments run single-instance and skip it.
func (s *Scheduler) acquireLock() bool {
	if s.db.Dialector.Name() != "postgres" {
		return true
	}
	var acquired bool
	if err := s.db.Raw("SELECT pg_try_advisory_lock(?)", billingLockID).Scan(&acquired).Error; err != nil {
		slog.Error("failed to acquire billing lock", "error", err)
		return false
	}
	return acquired
}

func (s *Scheduler) releaseLock() {
	if s.db.Dialector.Name() != "postgres" {
		return
	}
	if err := s.db.Exec("SELECT pg_advisory_unlock(?)", billingLockID).Error; err != nil {
		slog.Error("failed to release billing lock", "error", err)
	}
}
