package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionKeyPrefix namespaces session keys in a shared Redis.
const DefaultSessionKeyPrefix = "adcnav:session:"

// RedisSessionStore keeps each session as one JSON value so in-progress
// dialogs survive a restart. A zero TTL keeps sessions until cleared.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore connects to the Redis server at url (redis://...).
func NewRedisSessionStore(ctx context.Context, url string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		slog.Error("RedisSessionStore: unable to reach redis", "error", err)
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	slog.Info("RedisSessionStore connected", "addr", opts.Addr, "ttl", ttl)
	return &RedisSessionStore{client: client, prefix: DefaultSessionKeyPrefix, ttl: ttl}, nil
}

func (r *RedisSessionStore) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisSessionStore) Create(ctx context.Context, identity models.UserIdentity, kind models.DialogKind, entry models.StateType) (*models.Session, error) {
	if identity.ID <= 0 {
		return nil, models.ErrInvalidUserID
	}
	sess := models.NewSession(identity, kind, entry, time.Now())
	if err := r.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *RedisSessionStore) Get(ctx context.Context, userID int64) (*models.Session, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", userID, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Error("RedisSessionStore.Get: corrupt session dropped", "error", err, "userID", userID)
		_ = r.Clear(ctx, userID)
		return nil, nil
	}
	if sess.Fields == nil {
		sess.Fields = make(map[models.FieldName]models.FieldValue)
	}
	return &sess, nil
}

// Update is a read-modify-write; callers already serialize per user.
func (r *RedisSessionStore) Update(ctx context.Context, userID int64, field models.FieldName, value string) error {
	sess, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("update %s for user %d: %w", field, userID, models.ErrNoSession)
	}
	sess.Record(field, value)
	return r.write(ctx, sess)
}

func (r *RedisSessionStore) Save(ctx context.Context, sess *models.Session) error {
	if sess == nil || sess.UserID <= 0 {
		return models.ErrInvalidUserID
	}
	return r.write(ctx, sess)
}

func (r *RedisSessionStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session %d: %w", userID, err)
	}
	return nil
}

func (r *RedisSessionStore) write(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %d: %w", sess.UserID, err)
	}
	if err := r.client.Set(ctx, r.key(sess.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %d: %w", sess.UserID, err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
