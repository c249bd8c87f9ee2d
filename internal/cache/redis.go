package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

const (
	tasksKey     = "tasks"
	closeTimeout = 3 * time.Second
)

// RedisMirror stores the list as a single JSON value, so a restarted
// client can take rollback snapshots before its first refetch lands.
//
// The value does not expire while the mirror is open. Close arms the
// TTL, so a list left behind by a stopped client is dropped after ttl.
type RedisMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	stats  stats
}

func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{
		client: client,
		key:    prefix + tasksKey,
		ttl:    ttl,
	}
}

func (m *RedisMirror) Get(ctx context.Context) ([]models.Task, error) {
	m.stats.gets.Add(1)

	data, err := m.client.Get(ctx, m.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Task{}, nil
		}
		m.stats.errors.Add(1)
		return nil, fmt.Errorf("failed to get mirror: %w", err)
	}

	var tasks []models.Task
	err = json.Unmarshal(data, &tasks)
	if err != nil {
		m.stats.errors.Add(1)
		return nil, fmt.Errorf("failed to unmarshal mirror: %w", err)
	}
	return tasks, nil
}

func (m *RedisMirror) Set(ctx context.Context, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		m.stats.errors.Add(1)
		return fmt.Errorf("failed to marshal mirror: %w", err)
	}

	// SET without an expiration also clears a TTL armed by a previous run.
	err = m.client.Set(ctx, m.key, data, 0).Err()
	if err != nil {
		m.stats.errors.Add(1)
		return fmt.Errorf("failed to set mirror: %w", err)
	}

	m.stats.sets.Add(1)
	return nil
}

func (m *RedisMirror) Invalidate(ctx context.Context) error {
	err := m.client.Del(ctx, m.key).Err()
	if err != nil {
		m.stats.errors.Add(1)
		return fmt.Errorf("failed to delete mirror: %w", err)
	}

	m.stats.deletes.Add(1)
	return nil
}

func (m *RedisMirror) Stats() StatsSnapshot {
	return m.stats.snapshot()
}

func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *RedisMirror) Close() error {
	var expireErr error
	if m.ttl > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		expireErr = m.client.Expire(ctx, m.key, m.ttl).Err()
		if expireErr != nil {
			m.stats.errors.Add(1)
			expireErr = fmt.Errorf("failed to expire mirror: %w", expireErr)
		}
	}
	return errors.Join(expireErr, m.client.Close())
}
