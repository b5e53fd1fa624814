package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/guard"
	"github.com/vardakademi/gdprguard/internal/logger"
	"go.uber.org/zap"
)

// LockoutNotice is shown to the user when the third violation locks the
// account.
const LockoutNotice = "Ditt konto har raderats eftersom känsliga personuppgifter har skickats vid tre tillfällen. Kontakta din utbildningsansvariga om du anser att detta är fel."

// Tracker drives the three-strikes escalation policy. It owns no state of
// its own: the counter lives in the account store so it survives sessions
// and tabs.
type Tracker struct {
	store    AccountStore
	sessions SessionRegistry
	notifier Notifier
	config   config.EscalationConfig
	logger   *logger.Logger
}

// NewTracker creates an escalation tracker.
func NewTracker(store AccountStore, sessions SessionRegistry, notifier Notifier, cfg config.EscalationConfig, log *logger.Logger) *Tracker {
	return &Tracker{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

// Allowed reports whether the user may submit text at all. Locked users are
// never scanned again. A storage fault fails closed: if lock state cannot be
// read, the submission is not allowed.
func (t *Tracker) Allowed(ctx context.Context, userID string) (bool, error) {
	// Fast path: the registry marker covers the common case of another tab
	// already having triggered the lockout.
	lockedOut, err := t.sessions.IsLockedOut(ctx, userID)
	if err == nil && lockedOut {
		return false, nil
	}
	if err != nil {
		t.logger.Warn("session registry unavailable, falling back to account store",
			zap.String("user_id", userID), zap.Error(err))
	}

	locked, err := t.store.IsLocked(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to read lock state: %w", err)
	}
	return !locked, nil
}

// RecordViolation atomically increments the user's violation counter and, on
// reaching the threshold, performs the lockout. A failure to increment is
// returned as an error and the caller must keep the submission blocked: the
// three-strikes rule may not be bypassed while accounting is unreliable.
func (t *Tracker) RecordViolation(ctx context.Context, userID string, result guard.ScanResult) (Outcome, error) {
	count, lockedNow, err := t.store.IncrementViolation(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to record violation: %w", err)
	}

	t.logger.LogViolation(userID, string(result.Category), string(result.Severity), count)
	t.notifier.NotifyViolation(userID, result.Category, result.Severity, count)

	outcome := Outcome{
		Count:     count,
		State:     StateForCount(count, t.config.Threshold),
		LockedNow: lockedNow,
	}

	if lockedNow {
		t.lockout(ctx, userID, count)
	}

	return outcome, nil
}

// lockout performs the lockout side effects: durable marker first so every
// tab is blocked while the rest is retried, then forced logout, then the
// irreversible account deletion. Delegation failures are retried with a
// bounded backoff; the account row is already locked, so the user stays
// blocked throughout.
func (t *Tracker) lockout(ctx context.Context, userID string, count int) {
	t.logger.LogLockout(userID, count)

	if err := t.retry(ctx, "mark lockout", func() error {
		return t.sessions.MarkLockedOut(ctx, userID)
	}); err != nil {
		t.logger.Error("failed to persist lockout marker",
			zap.String("user_id", userID), zap.Error(err))
	}

	t.notifier.NotifyLockout(userID, LockoutNotice)

	if err := t.retry(ctx, "terminate sessions", func() error {
		return t.sessions.TerminateSessions(ctx, userID)
	}); err != nil {
		t.logger.Error("failed to terminate sessions",
			zap.String("user_id", userID), zap.Error(err))
	}

	if err := t.retry(ctx, "delete account", func() error {
		return t.store.DeleteAccount(ctx, userID)
	}); err != nil {
		t.logger.Error("account deletion failed, account remains locked",
			zap.String("user_id", userID), zap.Error(err))
	}
}

// retry runs fn up to the configured number of attempts.
func (t *Tracker) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	attempts := t.config.LockoutRetries + 1
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		t.logger.Warn("lockout delegation attempt failed",
			zap.String("operation", op),
			zap.Int("attempt", i+1),
			zap.Error(err))
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.config.RetryBackoff):
		}
	}
	return err
}

// Threshold exposes the configured strike limit.
func (t *Tracker) Threshold() int {
	return t.config.Threshold
}
