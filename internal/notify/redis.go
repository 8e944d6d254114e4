package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StreamName is the Redis Stream notifications are handed off to. Delivery
// (email, push, websocket fanout) is a downstream consumer's concern.
const StreamName = "debate:notifications"

const publishTimeout = 5 * time.Second

// RedisNotifier publishes notification events onto a Redis Stream. Publishing
// is one-way: failures are logged, never returned to the caller.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier connects to Redis and verifies the connection
func NewRedisNotifier(addr, password string, db int) (*RedisNotifier, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisNotifier{rdb: rdb}, nil
}

// Notify hands the event off to the stream without blocking the caller
func (n *RedisNotifier) Notify(userID primitive.ObjectID, kind Kind, payload map[string]string) {
	event := NewEvent(kind, userID.Hex(), payload)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		data, err := MarshalEvent(event)
		if err != nil {
			log.Printf("notify: failed to marshal %s event: %v", kind, err)
			return
		}
		err = n.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamName,
			Values: map[string]interface{}{"event": data},
		}).Err()
		if err != nil {
			log.Printf("notify: failed to publish %s event for %s: %v", kind, userID.Hex(), err)
		}
	}()
}

// LogNotifier is a stand-in used when Redis is not configured
type LogNotifier struct{}

// Notify logs the event instead of publishing it
func (LogNotifier) Notify(userID primitive.ObjectID, kind Kind, payload map[string]string) {
	log.Printf("notify: %s -> %s %v", kind, userID.Hex(), payload)
}
