package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/pkg/logger"
)

// Client caches quota snapshots with a short TTL. The service layer
// treats it as optional: a nil client disables caching.
type Client struct {
	client valkey.Client
	ttl    time.Duration
}

const quotaKeyPrefix = "quota:"

func NewRedisClient(cfg environments.RedisConfig, ttl time.Duration) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) CacheQuota(ctx context.Context, userID int64, view *domain.QuotaView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal quota view: %w", err)
	}

	key := fmt.Sprintf("%s%d", quotaKeyPrefix, userID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache quota: %w", err)
	}

	logger.Debugf("Cached quota snapshot for user %d", userID)

	return nil
}

func (c *Client) GetCachedQuota(ctx context.Context, userID int64) (*domain.QuotaView, error) {
	key := fmt.Sprintf("%s%d", quotaKeyPrefix, userID)

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached quota: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached quota: %w", err)
	}

	var view domain.QuotaView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quota view: %w", err)
	}

	return &view, nil
}

// InvalidateQuota drops a user's cached snapshot. Called after a
// dispatch changes their usage.
func (c *Client) InvalidateQuota(ctx context.Context, userID int64) error {
	key := fmt.Sprintf("%s%d", quotaKeyPrefix, userID)

	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate quota cache: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
