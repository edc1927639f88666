package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/clause"

	"matriesfinance/platform-api/model"
)

// OneTimeTokenStore remembers which email verification and password reset
// tokens were already consumed.
type OneTimeTokenStore interface {
	// Consume marks jti as used. It returns ErrTokenAlreadyUsed if it was
	// marked before. Check and mark happen in one step.
	Consume(ctx context.Context, jti string, expiresAt time.Time) error
	// DeleteExpired removes records whose token can no longer be presented.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type DBOneTimeStore struct {
	s *Store
}

func NewDBOneTimeStore(s *Store) *DBOneTimeStore {
	return &DBOneTimeStore{s: s}
}

func (d *DBOneTimeStore) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	r := d.s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.OneTimeToken{TokenID: jti, ExpiresAt: expiresAt})
	if r.Error != nil {
		return fmt.Errorf("failed to consume token, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrTokenAlreadyUsed
	}

	return nil
}

func (d *DBOneTimeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r := d.s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.OneTimeToken{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to delete expired one-time tokens, %w", r.Error)
	}

	return r.RowsAffected, nil
}

const redisKeyPrefix = "onetimetoken:"

// RedisOneTimeStore keeps the consumed markers in redis. Keys expire on their
// own together with the token, so there's nothing to clean up.
type RedisOneTimeStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisOneTimeStore(rdb redis.UniversalClient) *RedisOneTimeStore {
	return &RedisOneTimeStore{rdb: rdb, now: time.Now}
}

func (r *RedisOneTimeStore) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := r.rdb.SetNX(ctx, redisKeyPrefix+jti, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to consume token, %w", err)
	}

	if !ok {
		return ErrTokenAlreadyUsed
	}

	return nil
}

func (r *RedisOneTimeStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
