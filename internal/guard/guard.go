// Package guard hands out one-time submission tokens so a rendered form can be posted once.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
)

type Guard interface {
	// Issue returns a fresh token valid for the guard's TTL.
	Issue(ctx context.Context) (string, error)
	// Claim consumes token. Unknown, expired or already claimed tokens fail with KindConflict.
	Claim(ctx context.Context, token string) error
}

const CodeClaimed = "TOKEN_CLAIMED"

// Claimed builds the error returned for a token that cannot be claimed.
func Claimed(op string) error {
	return errs.E(errs.KindConflict, CodeClaimed, op, "already submitted", nil, nil)
}

type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, tokens: make(map[string]time.Time)}
}

func (m *Memory) Issue(ctx context.Context) (string, error) {
	const op = "guard.memory.issue"

	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(op, err)
	}

	token := uuid.NewString()

	m.mu.Lock()
	m.tokens[token] = m.now().Add(m.ttl)
	m.mu.Unlock()

	return token, nil
}

// Cleanup drops expired tokens every interval until ctx is done.
func (m *Memory) Cleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := m.now()
	for token, exp := range m.tokens {
		if !now.Before(exp) {
			delete(m.tokens, token)
			removed++
		}
	}
	return removed
}

func (m *Memory) Claim(ctx context.Context, token string) error {
	const op = "guard.memory.claim"

	if err := ctx.Err(); err != nil {
		return errs.Wrap(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.tokens[token]
	if !ok {
		return Claimed(op)
	}
	delete(m.tokens, token)
	if !m.now().Before(exp) {
		return Claimed(op)
	}
	return nil
}
