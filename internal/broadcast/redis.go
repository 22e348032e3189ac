package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/aahar/internal/lib/sl"
)

// RedisChannel доставляет события между процессами через Redis Pub/Sub.
type RedisChannel struct {
	client *redis.Client
	topic  string
	log    *slog.Logger
}

// NewRedisChannel создаёт канал поверх topic.
func NewRedisChannel(client *redis.Client, topic string, log *slog.Logger) *RedisChannel {
	return &RedisChannel{
		client: client,
		topic:  topic,
		log:    log,
	}
}

// Publish сериализует событие в JSON и публикует его в topic.
func (c *RedisChannel) Publish(ctx context.Context, ev Event) error {
	const op = "broadcast.RedisChannel.Publish"
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.client.Publish(ctx, c.topic, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Subscribe подписывается на topic и дожидается подтверждения от Redis,
// чтобы события, отправленные после возврата, не терялись.
func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	const op = "broadcast.RedisChannel.Subscribe"
	pubsub := c.client.Subscribe(ctx, c.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make(chan Event, defaultBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				c.log.Warn("failed to close pubsub", slog.String("op", op), sl.Err(err))
			}
		})
	}

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.log.Warn("skip malformed sync event", slog.String("op", op), sl.Err(err))
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}
