// Package sync reconciles locally queued health records with the remote API.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/domain"
	"github.com/zy0x1337/health-tracker-pwa-sub000/internal/gateway"
)

// DefaultInterval is the periodic sync cadence while online.
const DefaultInterval = 5 * time.Minute

// LocalStore exposes the pending-record operations the engine needs.
type LocalStore interface {
	ListUnsynced() ([]domain.HealthRecord, error)
	MarkSynced(localID string) error
	SetRemoteID(localID, remoteID string) error
}

// Pusher submits a single record to the remote store.
type Pusher interface {
	PushRecord(ctx context.Context, record domain.HealthRecord, force bool) (*gateway.PushResult, error)
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used to report per-record failures.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine drains the local unsynced queue. State machine per record:
// pending -> in-flight -> synced, or back to pending for a later pass.
type Engine struct {
	store    LocalStore
	pusher   Pusher
	interval time.Duration
	logger   *log.Logger

	inFlight         atomic.Bool
	trigger          chan struct{}
	shutdownComplete chan struct{}
}

// NewEngine constructs an Engine with the given sync interval.
func NewEngine(store LocalStore, pusher Pusher, interval time.Duration, opts ...Option) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e := &Engine{
		store:            store,
		pusher:           pusher,
		interval:         interval,
		logger:           log.New(log.Writer(), "[sync] ", log.LstdFlags),
		trigger:          make(chan struct{}, 1),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the periodic loop. It should be called in a goroutine and
// stops when the context is cancelled.
func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer func() {
		ticker.Stop()
		close(e.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.trigger:
		}

		if err := e.RunPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Printf("sync pass error: %v", err)
		}
	}
}

// Wait blocks until the loop has stopped.
func (e *Engine) Wait() {
	<-e.shutdownComplete
}

// TriggerNow requests an immediate pass without blocking the caller. Used
// right after a local write and on the offline-to-online transition. A
// trigger arriving while a pass is queued or running is dropped.
func (e *Engine) TriggerNow() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// RunPass pushes every pending record once. Only one pass may be in flight at
// a time; overlapping invocations return immediately. A failing record is
// left pending and does not block the rest. Re-running a pass is idempotent:
// the synced flag is re-checked before each push.
func (e *Engine) RunPass(ctx context.Context) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer e.inFlight.Store(false)

	start := time.Now()
	defer func() { passDuration.Observe(time.Since(start).Seconds()) }()

	pending, err := e.store.ListUnsynced()
	if err != nil {
		return fmt.Errorf("list unsynced: %w", err)
	}

	for _, record := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if record.Synced {
			continue
		}

		result, err := e.pusher.PushRecord(ctx, record, false)
		switch {
		case err == nil:
			if result != nil && result.ID != "" {
				if err := e.store.SetRemoteID(record.LocalID, result.ID); err != nil {
					e.logger.Printf("record %s: store remote id: %v", record.LocalID, err)
				}
			}
			if err := e.store.MarkSynced(record.LocalID); err != nil {
				e.logger.Printf("record %s: mark synced: %v", record.LocalID, err)
				continue
			}
			pushedCounter.Inc()

		case errors.Is(err, gateway.ErrDuplicate):
			// The server already holds an identical same-day entry. Treat the
			// local copy as synced-equivalent rather than retrying forever.
			if err := e.store.MarkSynced(record.LocalID); err != nil {
				e.logger.Printf("record %s: mark duplicate synced: %v", record.LocalID, err)
				continue
			}
			duplicateCounter.Inc()

		default:
			e.logger.Printf("record %s: push failed, left pending: %v", record.LocalID, err)
			failedCounter.Inc()
		}
	}

	return nil
}
