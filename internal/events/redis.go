package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"deskstream/internal/constants"
)

type RedisConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Channel  string
}

// RedisPublisher announces events on a Redis pub/sub channel so external
// tooling can watch viewers come and go. Nothing is stored in Redis.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Port == "" {
		cfg.Port = "6379"
	}
	if cfg.Channel == "" {
		cfg.Channel = constants.DefaultRedisChannel
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.RedisPublishTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{client: client, channel: cfg.Channel}, nil
}

// NewRedisSink returns a publisher when a host is configured and reachable,
// otherwise nil so events stay local.
func NewRedisSink(ctx context.Context, cfg RedisConfig) *RedisPublisher {
	if cfg.Host == "" {
		return nil
	}
	pub, err := NewRedisPublisher(ctx, cfg)
	if err != nil {
		log.Printf("⚠️  Redis connection failed: %v", err)
		log.Println("📡 Events stay local")
		return nil
	}
	log.Printf("📡 Publishing events to Redis %s:%s channel %q", cfg.Host, cfg.Port, pub.channel)
	return pub
}

func (p *RedisPublisher) Deliver(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, constants.RedisPublishTimeout)
	defer cancel()
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
