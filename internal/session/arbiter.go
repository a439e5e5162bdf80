// Package session arbitrates exclusive single-user access to the triage
// engine. The classifier weights and the working directory are mutated in
// place with no per-user isolation, so a second concurrent editor would
// corrupt shared state; the arbiter makes that impossible by issuing at most
// one live token at a time.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lewtec/triador/internal/domain"
)

// DefaultHeartbeatTimeout is how long a session survives without a heartbeat.
const DefaultHeartbeatTimeout = 30 * time.Second

// Arbiter grants at most one active client a working token and expires stale
// sessions by heartbeat timeout. There is no queue of waiting clients: a
// rejected acquire simply means try again later.
type Arbiter struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
	active  *domain.Session
	logger  *zap.Logger
}

// NewArbiter creates an arbiter with the given heartbeat timeout.
func NewArbiter(timeout time.Duration, logger *zap.Logger) *Arbiter {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{timeout: timeout, now: time.Now, logger: logger}
}

// Acquire grants a new token if no session is active or the active one has
// exceeded the heartbeat timeout. Otherwise it fails with ErrSessionBusy.
func (a *Arbiter) Acquire() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if a.active != nil && now.Sub(a.active.LastHeartbeat) < a.timeout {
		return "", domain.ErrSessionBusy
	}
	if a.active != nil {
		a.logger.Info("superseding expired session",
			zap.Time("last_heartbeat", a.active.LastHeartbeat))
	}
	a.active = &domain.Session{Token: uuid.NewString(), LastHeartbeat: now}
	a.logger.Info("session acquired")
	return a.active.Token, nil
}

// Heartbeat refreshes the session's liveness. A mismatched or timed-out token
// fails with ErrSessionExpired and the client must re-acquire.
func (a *Arbiter) Heartbeat(token string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(token); err != nil {
		return "", domain.ErrSessionExpired
	}
	a.active.LastHeartbeat = a.now()
	return a.active.Token, nil
}

// Validate is the precondition gate for every other engine operation: it
// fails with ErrUnauthorized unless the token matches the live session. A
// valid request also counts as a heartbeat.
func (a *Arbiter) Validate(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(token); err != nil {
		return domain.ErrUnauthorized
	}
	a.active.LastHeartbeat = a.now()
	return nil
}

// check must be called with the mutex held. It drops the active session when
// the timeout has elapsed.
func (a *Arbiter) check(token string) error {
	if a.active == nil || a.active.Token != token {
		return domain.ErrSessionExpired
	}
	if a.now().Sub(a.active.LastHeartbeat) >= a.timeout {
		a.logger.Info("session timed out",
			zap.Time("last_heartbeat", a.active.LastHeartbeat))
		a.active = nil
		return domain.ErrSessionExpired
	}
	return nil
}
