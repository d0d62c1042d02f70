package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
)

// Publisher hands a persisted notification to live delivery.
type Publisher interface {
	Publish(ctx context.Context, userID uint, n models.Notification) error
}

// LocalPublisher delivers through a hub in this process only.
type LocalPublisher struct {
	Hub *Hub
}

func (p LocalPublisher) Publish(_ context.Context, userID uint, n models.Notification) error {
	p.Hub.Push(userID, n)
	return nil
}

type envelope struct {
	UserID       uint                `json:"userId"`
	Notification models.Notification `json:"notification"`
}

// RedisRelay fans notifications out across server instances. Every
// instance publishes to one channel and pushes what it receives into its
// own hub, so a user connected anywhere gets the event.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(redisURL, channel string, hub *Hub) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &RedisRelay{
		client:  redis.NewClient(opts),
		channel: channel,
		hub:     hub,
	}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, userID uint, n models.Notification) error {
	payload, err := encodeEnvelope(userID, n)
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	return nil
}

// Run subscribes to the relay channel and pushes every event into the
// local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	logger.WithFields(logrus.Fields{"channel": r.channel}).Info("Notification relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(payload string) {
	userID, n, err := decodeEnvelope(payload)
	if err != nil {
		logger.WithError(err).Warn("Dropping malformed relay message")
		return
	}

	r.hub.Push(userID, n)
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}

func encodeEnvelope(userID uint, n models.Notification) ([]byte, error) {
	return json.Marshal(envelope{UserID: userID, Notification: n})
}

func decodeEnvelope(payload string) (uint, models.Notification, error) {
	var env envelope

	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return 0, models.Notification{}, err
	}

	if env.UserID == 0 {
		return 0, models.Notification{}, fmt.Errorf("relay message without user id")
	}

	env.Notification.UserID = env.UserID

	return env.UserID, env.Notification, nil
}
