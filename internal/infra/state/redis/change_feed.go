package redisstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// changeEvent is published whenever a user's state slot is rewritten.
type changeEvent struct {
	UserID uint   `json:"user_id"`
	Origin string `json:"origin"`
}

// ChangeFeed fans state changes out to every server instance over Redis pub/sub.
type ChangeFeed struct {
	client  *redis.Client
	channel string
	origin  string
}

// NewChangeFeed creates a feed on the channel derived from keyPrefix. Each
// feed gets its own origin id so an instance can skip its own events.
func NewChangeFeed(client *redis.Client, keyPrefix string) *ChangeFeed {
	if client == nil {
		panic("redis client cannot be nil for ChangeFeed")
	}
	if keyPrefix == "" {
		keyPrefix = "rd:"
	}
	return &ChangeFeed{
		client:  client,
		channel: fmt.Sprintf("%sdesigner:changes", keyPrefix),
		origin:  uuid.NewString(),
	}
}

// PublishChange announces that userID's state changed on this instance.
func (f *ChangeFeed) PublishChange(ctx context.Context, userID uint) error {
	payload, err := json.Marshal(changeEvent{UserID: userID, Origin: f.origin})
	if err != nil {
		return fmt.Errorf("redis: failed to marshal change event for user %d: %w", userID, err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish change to channel %s: %w", f.channel, err)
	}
	return nil
}

// Subscribe calls handle for every change made by another instance. It
// blocks until ctx is done.
func (f *ChangeFeed) Subscribe(ctx context.Context, handle func(userID uint)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: failed to subscribe to %s: %w", f.channel, err)
	}
	log := logrus.WithFields(logrus.Fields{"component": "change_feed", "channel": f.channel})
	log.Info("Subscribed to state changes")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info("Change feed subscription stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, own, err := f.decode(msg.Payload)
			if err != nil {
				log.WithError(err).Warn("Dropping malformed change event")
				continue
			}
			if !own {
				handle(ev.UserID)
			}
		}
	}
}

func (f *ChangeFeed) decode(payload string) (changeEvent, bool, error) {
	var ev changeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, false, err
	}
	return ev, ev.Origin == f.origin, nil
}
