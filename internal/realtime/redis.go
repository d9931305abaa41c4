package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// RedisBroadcaster relays frames through a Redis channel so that every
// instance delivers them to its own sockets.
type RedisBroadcaster struct {
	rc      *redis.Client
	channel string
	hub     *Hub

	readyOnce sync.Once
	ready     chan struct{}
}

func NewRedisBroadcaster(rc *redis.Client, channel string, hub *Hub) *RedisBroadcaster {
	return &RedisBroadcaster{
		rc:      rc,
		channel: channel,
		hub:     hub,
		ready:   make(chan struct{}),
	}
}

// Emit publishes the frame. If Redis is unreachable the frame is still
// delivered to local clients.
func (b *RedisBroadcaster) Emit(projectID uint, event string, payload any) {
	data, err := encodeFrame(Frame{Type: event, ProjectID: projectID, Data: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("Failed to encode realtime event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.rc.Publish(ctx, b.channel, data).Err(); err != nil {
		log.WithError(err).WithField("channel", b.channel).Warn("Redis publish failed, delivering locally")
		b.hub.Deliver(projectID, data)
	}
}

// Ready is closed once the first subscription is confirmed.
func (b *RedisBroadcaster) Ready() <-chan struct{} {
	return b.ready
}

// Run subscribes to the channel and delivers frames until ctx is done,
// resubscribing whenever the subscription drops.
func (b *RedisBroadcaster) Run(ctx context.Context) {
	for {
		b.consume(ctx)

		if ctx.Err() != nil {
			return
		}

		log.WithField("channel", b.channel).Error("Redis subscription closed, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (b *RedisBroadcaster) consume(ctx context.Context) {
	sub := b.rc.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Redis subscribe failed")
		}
		return
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var head struct {
				ProjectID uint `json:"project_id"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &head); err != nil || head.ProjectID == 0 {
				log.WithField("payload", msg.Payload).Warn("Ignoring malformed realtime frame")
				continue
			}

			b.hub.Deliver(head.ProjectID, []byte(msg.Payload))
		}
	}
}
