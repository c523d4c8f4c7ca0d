package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is one time-boxed QR attendance window for a class meeting. It is
// immutable once created and expires logically when the wall clock passes
// ExpiresAt; nothing deletes it explicitly.
type Session struct {
	ID        string `json:"sessionId"`
	ClassID   string `json:"classId"`
	TeacherID string `json:"teacherId"`
	ExpiresAt int64  `json:"expiresAt"` // unix seconds
}

const sessionKeyPrefix = "qrsession:"

// Redis keys get a generous TTL for hygiene only; expiry correctness always
// comes from comparing ExpiresAt against the clock at marking time.
const sessionKeyTTL = 24 * time.Hour

// SessionRepository persists sessions in Redis.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a repo.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// Put stores the session.
func (r *SessionRepository) Put(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKeyPrefix+s.ID, data, sessionKeyTTL).Err()
}

// Get returns the session or nil when absent.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
