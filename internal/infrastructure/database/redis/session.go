package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

// SessionStore keeps login sessions as "<prefix>session:<id>" keys holding the
// user id, expiring after the session TTL.
type SessionStore struct {
	client *Client
	logger logging.Logger
	ttl    time.Duration
	newID  func() string
}

func NewSessionStore(client *Client, ttl time.Duration, log logging.Logger) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, logger: log.Named("session"), newID: uuid.NewString}
}

// Create starts a session for userID and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	id := s.newID()
	if err := s.client.Set(ctx, s.client.Key("session", id), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCacheError, "failed to store session")
	}
	s.logger.Debug("session created", logging.Int64("user_id", userID))
	return id, nil
}

// Lookup returns the user id of a live session and slides its expiry.
// Unknown or expired sessions are Unauthorized.
func (s *SessionStore) Lookup(ctx context.Context, id string) (int64, error) {
	key := s.client.Key("session", id)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, errors.Unauthorized()
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read session")
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errors.Unauthorized()
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to refresh session", logging.Err(err))
	}
	return userID, nil
}

// Delete ends a session. Deleting an unknown session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.client.Key("session", id)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete session")
	}
	return nil
}
