// File: furk/services/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"furk/models"
	"furk/utils"

	"github.com/go-redis/redis/v8"
)

// RedisStore persists sealed session records in Redis.
type RedisStore struct {
	client *redis.Client
	sealer *utils.Sealer
	hub    *hub
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, sealer *utils.Sealer) *RedisStore {
	return &RedisStore{
		client: client,
		sealer: sealer,
		hub:    newHub(),
		now:    time.Now,
	}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, utils.SessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	plain, err := r.sealer.Open(data)
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(plain, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Save writes the record with a TTL of the token's remaining lifetime plus the
// refresh window, so an expired token can still be refreshed.
func (r *RedisStore) Save(ctx context.Context, s *models.Session) error {
	rec := *s
	rec.UpdatedAt = r.now()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	sealed, err := r.sealer.Seal(data)
	if err != nil {
		return err
	}
	ttl := time.Until(time.Unix(rec.TokenExpiry, 0)) + utils.SessionRefreshWindow
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, utils.SessionKeyPrefix+rec.ID, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	r.hub.publish(Event{Kind: EventSaved, SessionID: rec.ID, Role: rec.Role})
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, utils.SessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	r.hub.publish(Event{Kind: EventCleared, SessionID: id})
	return nil
}

func (r *RedisStore) SetNotice(ctx context.Context, id, notice string) error {
	return r.client.Set(ctx, utils.NoticeKeyPrefix+id, notice, utils.NoticeTTL).Err()
}

func (r *RedisStore) PopNotice(ctx context.Context, id string) (string, error) {
	n, err := r.client.GetDel(ctx, utils.NoticeKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return n, err
}

func (r *RedisStore) Subscribe(buf int) (<-chan Event, func()) {
	return r.hub.subscribe(buf)
}
