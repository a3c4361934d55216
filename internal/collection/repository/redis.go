package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds a client from a redis:// URL or a bare host:port
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisSessionRepository stores each session as one JSON document and
// keeps the set of ids in an index key. Writes run as WATCH/MULTI
// transactions on the document key.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	clock  Clock
}

// NewRedisSessionRepository creates a repository under the given key prefix
func NewRedisSessionRepository(client *redis.Client, prefix string, clock Clock) *RedisSessionRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &RedisSessionRepository{client: client, prefix: prefix, clock: clock}
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return r.prefix + ":collection:session:" + id
}

func (r *RedisSessionRepository) indexKey() string {
	return r.prefix + ":collection:sessions"
}

// Load returns the stored session document
func (r *RedisSessionRepository) Load(ctx context.Context, id string) (*domain.CollectionSession, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessionNotFound()
		}
		return nil, fmt.Errorf("failed to load collection session: %w", err)
	}
	return decodeSession(raw)
}

// Save writes the document if the stored version still equals expectedVersion
func (r *RedisSessionRepository) Save(ctx context.Context, session *domain.CollectionSession, expectedVersion int64) error {
	if err := validateSave(session, expectedVersion); err != nil {
		return err
	}

	key := r.sessionKey(session.ID)
	next := session.Clone()
	next.Version = expectedVersion + 1
	next.UpdatedAt = r.clock()

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode collection session: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expectedVersion != 0 {
				return sessionNotFound()
			}
		case err != nil:
			return fmt.Errorf("failed to read collection session: %w", err)
		default:
			if expectedVersion == 0 {
				return alreadyExists(session.ID)
			}
			current, err := decodeSession(raw)
			if err != nil {
				return err
			}
			if current.Version != expectedVersion {
				return versionConflict(session.ID)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, r.indexKey(), session.ID)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return versionConflict(session.ID)
		}
		return err
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}

// Delete removes the document and its index entry
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	var removed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, r.sessionKey(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection session: %w", err)
	}
	if removed.Val() == 0 {
		return sessionNotFound()
	}
	return nil
}

// ListAll loads every indexed session, newest first
func (r *RedisSessionRepository) ListAll(ctx context.Context) ([]*domain.CollectionSession, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collection sessions: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.CollectionSession{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection sessions: %w", err)
	}

	sessions := make([]*domain.CollectionSession, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between SMEMBERS and MGET
			continue
		}
		s, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	SortNewestFirst(sessions)
	return sessions, nil
}

func decodeSession(raw []byte) (*domain.CollectionSession, error) {
	var s domain.CollectionSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode collection session: %w", err)
	}
	if s.Problems == nil {
		s.Problems = []domain.ProblemReport{}
	}
	if s.Comments == nil {
		s.Comments = []domain.Comment{}
	}
	return &s, nil
}

// RedisDirectory keeps directory entries as JSON strings next to the sessions
type RedisDirectory struct {
	client *redis.Client
	prefix string
}

// NewRedisDirectory creates a directory under the given key prefix
func NewRedisDirectory(client *redis.Client, prefix string) *RedisDirectory {
	return &RedisDirectory{client: client, prefix: prefix}
}

func (d *RedisDirectory) key(userID string) string {
	return d.prefix + ":collection:directory:" + userID
}

func (d *RedisDirectory) Set(ctx context.Context, entry *actor.DirectoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode directory entry: %w", err)
	}
	if err := d.client.Set(ctx, d.key(entry.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store directory entry: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Get(ctx context.Context, userID string) (*actor.DirectoryEntry, error) {
	raw, err := d.client.Get(ctx, d.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, directoryEntryNotFound(userID)
		}
		return nil, fmt.Errorf("failed to load directory entry: %w", err)
	}

	var entry actor.DirectoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode directory entry: %w", err)
	}
	return &entry, nil
}

func (d *RedisDirectory) Delete(ctx context.Context, userID string) error {
	if err := d.client.Del(ctx, d.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete directory entry: %w", err)
	}
	return nil
}
