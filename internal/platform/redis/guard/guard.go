package guardredis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/guard"
)

const keyPrefix = "report:submission:"

type Option func(*Guard)

func WithTTL(ttl time.Duration) Option {
	return func(g *Guard) { g.ttl = ttl }
}

// Guard stores pending submission tokens in Redis so every replica sees the same claims.
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, opts ...Option) *Guard {
	g := &Guard{rdb: rdb, ttl: 10 * time.Minute}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Issue(ctx context.Context) (string, error) {
	const op = "guard.redis.issue"

	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, keyPrefix+token, 1, g.ttl).Result()
	if err != nil {
		return "", errs.E(errs.KindUnavailable, "GUARD_UNAVAILABLE", op, "submission guard unavailable", nil, err)
	}
	if !ok {
		return "", errs.E(errs.KindInternal, "TOKEN_COLLISION", op, "token already issued", nil, nil)
	}
	return token, nil
}

func (g *Guard) Claim(ctx context.Context, token string) error {
	const op = "guard.redis.claim"

	if token == "" {
		return guard.Claimed(op)
	}

	err := g.rdb.GetDel(ctx, keyPrefix+token).Err()
	if errors.Is(err, redis.Nil) {
		return guard.Claimed(op)
	}
	if err != nil {
		return errs.E(errs.KindUnavailable, "GUARD_UNAVAILABLE", op, "submission guard unavailable", nil, err)
	}
	return nil
}

var _ guard.Guard = (*Guard)(nil)
