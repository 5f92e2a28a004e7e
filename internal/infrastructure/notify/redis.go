package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/notification"
	"github.com/go-redis/redis/v8"
)

const DefaultChannel = "restaurant:orders"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Channel  string
}

// RedisPublisher pushes notifications on a pub/sub channel for out-of-process listeners.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(opts RedisOptions) *RedisPublisher {
	return NewRedisPublisherWithClient(redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	}), opts.Channel)
}

func NewRedisPublisherWithClient(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Notify(ctx context.Context, msg notification.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("notify: redis publish: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and calls fn for each decoded message until ctx ends.
func (p *RedisPublisher) Listen(ctx context.Context, fn func(notification.Message)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("notify: redis subscribe: %w", err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg notification.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			fn(msg)
		}
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
