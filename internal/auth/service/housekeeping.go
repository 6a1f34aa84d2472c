package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/store"
)

// DefaultHousekeepingInterval is used when no positive interval is given.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService prunes revocation entries whose tokens have expired
// anyway. With the Redis backend each pass is a no-op since keys carry a TTL.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{Store: st, Logger: logger, Interval: interval}
}

// Start launches the worker. It runs one pass straight away and then one per
// Interval until Stop is called. Starting twice is a no-op.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels any pass in flight and waits for the worker to exit.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.Cleanup(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Cleanup performs one pass and returns the number of pruned entries.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	n, err := s.Store.RevokedTokens().DeleteExpiredRevokedTokens(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("failed to prune revoked tokens", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.Logger.Info("pruned revoked tokens", "count", n)
	}
	return n
}
