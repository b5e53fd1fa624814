package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vardakademi/gdprguard/internal/config"
	"go.uber.org/zap"
)

// Registry tracks active sessions and lockout markers in Redis so that a
// lockout triggered in one browser tab is visible to every other tab and
// device immediately.
type Registry struct {
	client *redis.Client
	config *config.RedisConfig
	logger *zap.Logger
}

// NewRegistry creates a new Redis-backed session registry
func NewRegistry(cfg *config.RedisConfig, logger *zap.Logger) (*Registry, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	registry := &Registry{
		client: client,
		config: cfg,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Session registry initialized successfully",
		zap.String("redis_url", maskRedisURL(cfg.URL)),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("session_ttl", cfg.SessionTTL))

	return registry, nil
}

// RegisterSession records an active session for the user.
func (r *Registry) RegisterSession(ctx context.Context, userID, sessionID string) error {
	key := r.sessionKey(userID, sessionID)
	if err := r.client.Set(ctx, key, time.Now().Format(time.RFC3339), r.config.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}
	return nil
}

// MarkLockedOut writes a durable lockout marker. The marker has no TTL: the
// lockout outlives every session and is only removed together with the
// account.
func (r *Registry) MarkLockedOut(ctx context.Context, userID string) error {
	key := r.lockKey(userID)
	if err := r.client.Set(ctx, key, "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to write lockout marker: %w", err)
	}

	r.logger.Info("Lockout marker set", zap.String("user_id", userID))
	return nil
}

// IsLockedOut reports whether the user carries a lockout marker.
func (r *Registry) IsLockedOut(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.lockKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lockout marker: %w", err)
	}
	return n > 0, nil
}

// TerminateSessions deletes every active session key of the user, forcing a
// logout on all tabs and devices.
func (r *Registry) TerminateSessions(ctx context.Context, userID string) error {
	pattern := r.sessionKey(userID, "*")

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete session keys: %w", err)
		}
	}

	r.logger.Info("Sessions terminated",
		zap.String("user_id", userID),
		zap.Int("terminated", len(keys)))
	return nil
}

// Close closes the Redis connection
func (r *Registry) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Registry) sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%s:sess:%s:%s", r.config.KeyPrefix, userID, sessionID)
}

func (r *Registry) lockKey(userID string) string {
	return fmt.Sprintf("%s:lock:%s", r.config.KeyPrefix, userID)
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
