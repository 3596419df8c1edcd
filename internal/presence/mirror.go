// Package presence publishes a read-model of who is online to redis so
// the rest of the platform (dashboards, routing) can consume it without
// talking to this process. The in-memory registry stays authoritative.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hireloop/collab/internal/domain"
)

const (
	presenceKeyPrefix = "presence:"
	onlineSetKey      = "online_users"
	presenceTTL       = 2 * time.Minute
)

// Entry is the JSON shape stored per online user.
type Entry struct {
	UserID   domain.UserID `json:"user_id"`
	Role     domain.Role   `json:"role"`
	Status   string        `json:"status"`
	LastSeen time.Time     `json:"last_seen"`
}

// Mirror writes presence transitions to redis.
type Mirror struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewMirror(rdb *redis.Client) *Mirror {
	return &Mirror{rdb: rdb, clock: time.Now}
}

// SetOnline marks the user online and refreshes the online set.
func (m *Mirror) SetOnline(ctx context.Context, userID domain.UserID, role domain.Role) error {
	entry := Entry{
		UserID:   userID,
		Role:     role,
		Status:   "online",
		LastSeen: m.clock().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("presence: marshal entry: %w", err)
	}
	pipe := m.rdb.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+string(userID), data, presenceTTL)
	pipe.SAdd(ctx, onlineSetKey, string(userID))
	pipe.Expire(ctx, onlineSetKey, presenceTTL*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: set online: %w", err)
	}
	return nil
}

// SetOffline removes the user from the mirror.
func (m *Mirror) SetOffline(ctx context.Context, userID domain.UserID) error {
	pipe := m.rdb.Pipeline()
	pipe.Del(ctx, presenceKeyPrefix+string(userID))
	pipe.SRem(ctx, onlineSetKey, string(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: set offline: %w", err)
	}
	return nil
}

// Get reads an entry back; a missing or expired key reports offline.
func (m *Mirror) Get(ctx context.Context, userID domain.UserID) (Entry, error) {
	data, err := m.rdb.Get(ctx, presenceKeyPrefix+string(userID)).Result()
	if err == redis.Nil {
		return Entry{UserID: userID, Status: "offline"}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("presence: get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return Entry{}, fmt.Errorf("presence: unmarshal entry: %w", err)
	}
	return entry, nil
}

// OnlineUsers lists the user ids currently in the online set.
func (m *Mirror) OnlineUsers(ctx context.Context) ([]domain.UserID, error) {
	ids, err := m.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("presence: online users: %w", err)
	}
	out := make([]domain.UserID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.UserID(id))
	}
	return out, nil
}
