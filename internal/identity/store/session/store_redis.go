package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"licensure/internal/identity"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix   = "session:token:"
	userTokenKeyPrefix = "session:user:"
)

// RedisSessionStore is the production implementation for deployments where
// multiple instances share session state. Redis key TTL replaces lazy expiry.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

type redisSession struct {
	Token     string        `json:"token"`
	User      identity.User `json:"user"`
	CreatedAt time.Time     `json:"created_at"`
}

func (s *RedisSessionStore) Save(ctx context.Context, session identity.Session, ttl time.Duration) error {
	payload, err := json.Marshal(redisSession{
		Token:     session.Token,
		User:      session.User,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.Token, payload, ttl)
	pipe.Set(ctx, userTokenKeyPrefix+session.User.ID.String(), session.Token, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Find(ctx context.Context, token string) (identity.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Session{}, sentinel.ErrNotFound
	}
	if err != nil {
		return identity.Session{}, fmt.Errorf("find session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return identity.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return identity.Session{Token: stored.Token, User: stored.User, CreatedAt: stored.CreatedAt}, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	session, err := s.Find(ctx, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+token)
	pipe.Del(ctx, userTokenKeyPrefix+session.User.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindTokenByUser(ctx context.Context, userID domain.UserID) (string, error) {
	token, err := s.client.Get(ctx, userTokenKeyPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find token by user: %w", err)
	}
	return token, nil
}
