package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const identityChannel = "wayfarer:identity"

// IdentityChange is published when a process switched or dropped the
// identity of the shared install, so other processes (the bridge server,
// wayfarerctl) stop using a stale one.
type IdentityChange struct {
	Type      string    `json:"type"` // EventForce or EventClear
	Identity  string    `json:"identity,omitempty"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// RecoveryBroadcaster relays IdentityChanges over Redis pub/sub. With a nil
// client it does nothing.
type RecoveryBroadcaster struct {
	client  *redis.Client
	origin  string
	started sync.Once
}

func NewRecoveryBroadcaster(client *redis.Client) *RecoveryBroadcaster {
	return &RecoveryBroadcaster{client: client, origin: uuid.NewString()}
}

// Publish sends the change to every other listening process.
func (b *RecoveryBroadcaster) Publish(ctx context.Context, change IdentityChange) error {
	if b == nil || b.client == nil {
		return nil
	}
	change.Origin = b.origin
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, identityChannel, data).Err()
}

// Listen starts a single subscriber per broadcaster that hands changes from
// other processes to handle. It stops when ctx is done.
func (b *RecoveryBroadcaster) Listen(ctx context.Context, handle func(IdentityChange)) {
	if b == nil || b.client == nil {
		log.Println("Redis client not initialized; identity change listener not started")
		return
	}
	b.started.Do(func() {
		go b.run(ctx, handle)
	})
}

func (b *RecoveryBroadcaster) run(ctx context.Context, handle func(IdentityChange)) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := b.client.Subscribe(ctx, identityChannel)
			defer pubsub.Close()

			log.Printf("✅ Identity change listener started (channel: %s)", identityChannel)

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("identity listener error: %v", err)
					if !sleepCtx(ctx, backoff) {
						return
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var change IdentityChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Printf("failed to unmarshal identity change: %v", err)
					continue
				}
				if change.Origin == b.origin {
					continue
				}
				handle(change)
			}
		}()
	}
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
