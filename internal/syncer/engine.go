// Package syncer wraps every state-mutating operation with optimistic
// sync bookkeeping: the UI can show "syncing" the instant an operation
// starts, a transient failure offers a single retry bound to the exact
// failed operation, and an offline client accumulates a pending count
// instead of surfacing errors.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"boardsync/internal/config"
)

// State is the sync session state: idle -> syncing -> {saved, error,
// offline-pending}. "saved" auto-reverts to idle after a short display
// window.
type State string

const (
	StateIdle           State = "idle"
	StateSyncing        State = "syncing"
	StateSaved          State = "saved"
	StateError          State = "error"
	StateOfflinePending State = "offline-pending"
)

// Status is the read-only view exposed to the UI.
type Status struct {
	State        State  `json:"state"`
	PendingCount int    `json:"pendingCount"`
	LastError    string `json:"lastError,omitempty"`
	Online       bool   `json:"online"`
}

// Operation is a wrapped mutation. Operations must tolerate
// at-least-once application: the engine does not deduplicate retries.
type Operation func(ctx context.Context) error

type queuedOp struct {
	op      Operation
	message string
}

// Engine tracks one logical sync session across all wrapped operations.
type Engine struct {
	logger      *slog.Logger
	savedWindow time.Duration

	mu         sync.Mutex
	state      State
	pending    int
	online     bool
	lastError  string
	retryFn    func(ctx context.Context) error
	queue      []queuedOp
	savedTimer *time.Timer
}

// New creates an engine in the idle, online state.
func New(logger *slog.Logger) *Engine {
	return &Engine{
		logger:      logger,
		savedWindow: config.SavedDisplayWindow,
		state:       StateIdle,
		online:      true,
	}
}

// WithSync executes op with sync bookkeeping. On success the session
// reports saved; on failure it retains a retry closure replaying this
// exact operation, surfaces errorMessage, and returns the error so the
// caller can react. While offline the operation is queued instead and
// nil is returned (optimistic accept).
func (e *Engine) WithSync(ctx context.Context, op Operation, errorMessage string) error {
	e.mu.Lock()
	e.stopSavedTimerLocked()
	e.pending++

	if !e.online {
		e.state = StateOfflinePending
		e.queue = append(e.queue, queuedOp{op: op, message: errorMessage})
		e.mu.Unlock()
		e.logger.Debug("operation queued offline", "message", errorMessage)
		return nil
	}

	e.state = StateSyncing
	e.mu.Unlock()

	err := op(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.decrementPendingLocked()

	if err != nil {
		e.state = StateError
		e.lastError = errorMessage
		// Retry replays the original operation, not a generic reload.
		// Only the most recent failure's closure is retained.
		e.retryFn = func(ctx context.Context) error {
			return e.WithSync(ctx, op, errorMessage)
		}
		e.logger.Warn("sync failed", "message", errorMessage, "error", err)
		return fmt.Errorf("%s: %w", errorMessage, err)
	}

	e.lastError = ""
	e.retryFn = nil
	if e.pending == 0 {
		e.state = StateSaved
		e.startSavedTimerLocked()
	}
	return nil
}

// WithResult wraps an operation returning a value.
func WithResult[T any](ctx context.Context, e *Engine, op func(ctx context.Context) (T, error), errorMessage string) (T, error) {
	var result T
	err := e.WithSync(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, errorMessage)
	return result, err
}

// Retry replays the most recently failed operation. Calling it with no
// retained failure is a no-op.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	retry := e.retryFn
	e.retryFn = nil
	e.mu.Unlock()

	if retry == nil {
		return nil
	}
	return retry(ctx)
}

// SetOnline flips connectivity. Going online replays the offline queue
// in FIFO order; a queued operation that fails during replay lands in
// the normal error/retry path.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	wasOnline := e.online
	e.online = online
	var queue []queuedOp
	if online && !wasOnline {
		queue = e.queue
		e.queue = nil
		// The queued entries re-enter WithSync, which counts them
		// again; release the reservations taken at queue time.
		for range queue {
			e.decrementPendingLocked()
		}
		if len(queue) == 0 && e.state == StateOfflinePending {
			e.state = StateIdle
		}
	}
	e.mu.Unlock()

	for _, q := range queue {
		if err := e.WithSync(ctx, q.op, q.message); err != nil {
			e.logger.Warn("queued operation failed on reconnect", "message", q.message, "error", err)
		}
	}
}

// Status returns a point-in-time snapshot of the session state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:        e.state,
		PendingCount: e.pending,
		LastError:    e.lastError,
		Online:       e.online,
	}
}

// decrementPendingLocked never lets the counter go negative.
func (e *Engine) decrementPendingLocked() {
	if e.pending > 0 {
		e.pending--
	}
}

func (e *Engine) startSavedTimerLocked() {
	e.savedTimer = time.AfterFunc(e.savedWindow, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateSaved && e.pending == 0 {
			e.state = StateIdle
		}
	})
}

func (e *Engine) stopSavedTimerLocked() {
	if e.savedTimer != nil {
		e.savedTimer.Stop()
		e.savedTimer = nil
	}
}
