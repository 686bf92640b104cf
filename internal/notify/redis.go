package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/stevenhuff/media-renamer/internal/entity"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisRelay shares events between instances through a redis channel.
// Local events go out, events of other instances are delivered to local
// subscribers.
type RedisRelay struct {
	cl      redisPublisher
	sub     *redis.Client
	channel string
	hub     *Hub

	log *slog.Logger
}

func NewRedisRelay(cl *redis.Client, channel string, hub *Hub, log *slog.Logger) *RedisRelay {
	return &RedisRelay{
		cl:      cl,
		sub:     cl,
		channel: channel,
		hub:     hub,
		log:     log.With(slog.String("item", "RedisRelay"), slog.String("channel", channel)),
	}
}

// Run blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	local := r.hub.Subscribe()
	defer r.hub.Unsubscribe(local)

	ps := r.sub.Subscribe(ctx, r.channel)
	defer ps.Close()

	remote := ps.Channel()

	r.log.Info("Started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Stopped")

			return
		case e, ok := <-local.C:
			if !ok {
				return
			}

			if err := r.forward(ctx, e); err != nil {
				r.log.Error("Cannot forward event", slog.String("id", e.ID), slog.Any("error", err))
			}
		case msg, ok := <-remote:
			if !ok {
				return
			}

			if err := r.receive(msg.Payload); err != nil {
				r.log.Error("Cannot receive event", slog.Any("error", err))
			}
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, e entity.Event) error {
	if e.Origin != r.hub.Origin() {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cannot marshal event: %w", err)
	}

	if err := r.cl.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("cannot publish event: %w", err)
	}

	return nil
}

func (r *RedisRelay) receive(payload string) error {
	var e entity.Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return fmt.Errorf("cannot unmarshal event: %w", err)
	}

	if e.Origin == r.hub.Origin() {
		return nil
	}

	r.hub.Deliver(e)

	return nil
}
