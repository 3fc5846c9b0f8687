// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
)

// ExpiredTokenPurger deletes reset tokens past their TTL.
// *ResetTokenStore implements it.
type ExpiredTokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// ResetSweeper periodically purges expired reset tokens so abandoned
// requests do not accumulate.
type ResetSweeper struct {
	purger   ExpiredTokenPurger
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResetSweeper creates a sweeper that runs every interval.
func NewResetSweeper(purger ExpiredTokenPurger, interval time.Duration, logger *slog.Logger) (*ResetSweeper, error) {
	if purger == nil {
		return nil, oops.Errorf("purger is required")
	}
	if interval <= 0 {
		return nil, oops.With("interval", interval.String()).Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetSweeper{purger: purger, interval: interval, logger: logger}, nil
}

// RunOnce performs a single purge.
func (w *ResetSweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, oops.With("operation", "sweep reset tokens").Wrap(err)
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "purged expired reset tokens", "count", n)
	}
	return n, nil
}

// Start runs a purge immediately and then on every tick until Stop or ctx
// is done.
func (w *ResetSweeper) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the sweeper and waits for an in-flight purge to finish.
func (w *ResetSweeper) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *ResetSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ResetSweeper) sweep(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "reset token sweep failed", "error", err.Error())
	}
}
