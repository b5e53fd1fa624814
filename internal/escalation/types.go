package escalation

import (
	"context"
	"errors"

	"github.com/vardakademi/gdprguard/internal/guard"
)

// State represents where an account stands in the three-strikes policy.
// Transitions only move forward; the only way back from StateLocked is
// account deletion and recreation.
type State int

const (
	StateClean State = iota
	StateWarned1
	StateWarned2
	StateLocked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateWarned1:
		return "warned_1"
	case StateWarned2:
		return "warned_2"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// StateForCount maps a violation count to its escalation state for the given
// threshold.
func StateForCount(count, threshold int) State {
	switch {
	case count <= 0:
		return StateClean
	case count >= threshold:
		return StateLocked
	case count == threshold-1:
		return StateWarned2
	default:
		return StateWarned1
	}
}

// Outcome describes the result of recording a violation.
type Outcome struct {
	Count int   `json:"violation_count"`
	State State `json:"-"`
	// LockedNow is true only on the transition into StateLocked, so the
	// deletion side effect fires exactly once per account lifetime.
	LockedNow bool `json:"locked"`
}

// ErrAccountLocked is returned when an operation targets an account that has
// already been locked.
var ErrAccountLocked = errors.New("account is locked")

// ErrAccountNotFound is returned when the account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore is the persistence collaborator holding the violation counter.
// IncrementViolation must be atomic: concurrent submissions from several tabs
// must never lose an update.
type AccountStore interface {
	// IncrementViolation adds one to the account's counter and returns the
	// new value. When the new value reaches the threshold the account is
	// locked in the same transaction and lockedNow is true for exactly that
	// call.
	IncrementViolation(ctx context.Context, userID string) (count int, lockedNow bool, err error)
	// DeleteAccount performs the irreversible account deletion.
	DeleteAccount(ctx context.Context, userID string) error
	// IsLocked reports whether the account is locked or gone.
	IsLocked(ctx context.Context, userID string) (bool, error)
}

// SessionRegistry is the cross-tab session collaborator.
type SessionRegistry interface {
	// MarkLockedOut records a durable lockout marker so every open tab is
	// blocked, independent of the account row's fate.
	MarkLockedOut(ctx context.Context, userID string) error
	// TerminateSessions force-logs-out every active session of the user.
	TerminateSessions(ctx context.Context, userID string) error
	// IsLockedOut reports whether a lockout marker exists.
	IsLockedOut(ctx context.Context, userID string) (bool, error)
}

// Notifier pushes violation and lockout notices to the user's open clients.
type Notifier interface {
	NotifyViolation(userID string, category guard.Category, severity guard.Severity, count int)
	NotifyLockout(userID string, notice string)
}
