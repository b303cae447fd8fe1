package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
)

// PollState is the confirmation poller's state.
type PollState string

const (
	StateChecking PollState = "checking"
	StateFound    PollState = "found"
	StateTimedOut PollState = "not-found-timeout"
)

// ErrConfirmationTimeout means the order never became visible within the
// retry budget. The payment itself succeeded and the caller reached the
// success redirect, so this degrades to a generic success view, never an
// error shown as a failure.
var ErrConfirmationTimeout = errors.New("order not yet visible after retries")

// PollerStore is the slice of persistence the poller needs. GetOrderBySession
// must match strictly on the (ownerID, sessionID) pair: a user must never be
// shown another session's order.
type PollerStore interface {
	GetOrderBySession(ctx context.Context, userID, sessionID string) (*order.Order, error)
	DeleteCart(ctx context.Context, ownerID string) error
}

// PollerConfig tunes the retry schedule.
type PollerConfig struct {
	// InitialDelay gives the asynchronous webhook time to run before the
	// first probe.
	InitialDelay time.Duration
	// RetryInterval is the fixed delay between probes.
	RetryInterval time.Duration
	// MaxRetries bounds the probes after the first one.
	MaxRetries int
}

// DefaultPollerConfig retries for roughly thirty seconds.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		InitialDelay:  2 * time.Second,
		RetryInterval: 3 * time.Second,
		MaxRetries:    10,
	}
}

// ConfirmationPoller waits for the webhook-materialized order to become
// visible after the customer returns from the hosted payment page.
type ConfirmationPoller struct {
	store PollerStore
	cfg   PollerConfig

	// OnTransition, when set, observes state changes (for UIs and tests).
	OnTransition func(state PollState, attempt int)
}

func NewConfirmationPoller(store PollerStore, cfg PollerConfig) *ConfirmationPoller {
	return &ConfirmationPoller{store: store, cfg: cfg}
}

// Await polls for the order matching (userID, sessionID) until it appears,
// the retry budget is exhausted (ErrConfirmationTimeout), or ctx is cancelled.
// Cancelling ctx cancels any pending timer; no state is touched afterwards.
// When the order is found the user's cart is deleted best-effort as a safety
// net behind the webhook's primary clearing path.
func (p *ConfirmationPoller) Await(ctx context.Context, userID, sessionID string) (*order.Order, error) {
	p.transition(StateChecking, 0)

	if err := p.sleep(ctx, p.cfg.InitialDelay); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		o, err := p.store.GetOrderBySession(ctx, userID, sessionID)
		if err == nil {
			p.transition(StateFound, attempt)
			p.clearCart(ctx, userID)
			return o, nil
		}
		if !errors.Is(err, order.ErrOrderNotFound) {
			return nil, err
		}

		if attempt >= p.cfg.MaxRetries {
			p.transition(StateTimedOut, attempt)
			return nil, ErrConfirmationTimeout
		}

		p.transition(StateChecking, attempt+1)
		if err := p.sleep(ctx, p.cfg.RetryInterval); err != nil {
			return nil, err
		}
	}
}

// sleep waits d or until ctx is cancelled, stopping the timer either way.
func (p *ConfirmationPoller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *ConfirmationPoller) clearCart(ctx context.Context, userID string) {
	if err := p.store.DeleteCart(ctx, userID); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		// The webhook usually got here first; anything else is worth a log
		// line but not a failure.
		log.Printf("[Poller] Redundant cart clear for %s failed: %v", userID, err)
	}
}

func (p *ConfirmationPoller) transition(state PollState, attempt int) {
	if p.OnTransition != nil {
		p.OnTransition(state, attempt)
	}
}
