package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/domain"
)

// envelope is what travels over pub/sub: an encoded frame plus the instance that sent it.
type envelope struct {
	Origin   string          `json:"origin"`
	PlayerID string          `json:"playerId"`
	Frame    json.RawMessage `json:"frame"`
}

// Publisher is an app.Notifier that publishes player events on
// {prefix}:player:{playerID} so every instance can reach the player's connection.
type Publisher struct {
	client *redis.Client
	prefix string
	origin string
}

func NewPublisher(client *redis.Client, prefix, origin string) *Publisher {
	return &Publisher{client: client, prefix: prefix, origin: origin}
}

func (p *Publisher) Send(ctx context.Context, playerID string, e domain.Event) error {
	frame, err := domain.EncodeEvent(e)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Origin: p.origin, PlayerID: playerID, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := p.client.Publish(ctx, channel(p.prefix, playerID), raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind(), err)
	}
	return nil
}

func channel(prefix, playerID string) string {
	return prefix + ":player:" + playerID
}

// FrameSink delivers an encoded frame to a locally connected player.
type FrameSink interface {
	SendFrame(playerID string, frame []byte) bool
}

// Relay forwards events published by other instances to local connections.
type Relay struct {
	client *redis.Client
	prefix string
	origin string
	sink   FrameSink
	log    logrus.FieldLogger
}

func NewRelay(client *redis.Client, prefix, origin string, sink FrameSink, log logrus.FieldLogger) *Relay {
	return &Relay{client: client, prefix: prefix, origin: origin, sink: sink, log: log}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channel(r.prefix, "*"))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.log.WithError(err).WithField("channel", msg.Channel).Warn("relay: malformed envelope")
		return
	}
	if env.Origin == r.origin {
		return
	}
	if env.PlayerID == "" {
		env.PlayerID = strings.TrimPrefix(msg.Channel, channel(r.prefix, ""))
	}
	r.sink.SendFrame(env.PlayerID, env.Frame)
}
