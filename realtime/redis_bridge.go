package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ciclus/rd-dashboard/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChangesChannel is the Redis channel shared by every API instance.
const ChangesChannel = "rds:changes"

// Publisher hands change notices to their subscribers. The hub publishes
// locally; RedisBridge also reaches the other instances.
type Publisher interface {
	PublishChange(n ChangeNotice)
}

type envelope struct {
	Origin string       `json:"origin"`
	Notice ChangeNotice `json:"notice"`
}

// RedisBridge relays change notices between instances over Redis pub/sub.
// Notices published here reach the local hub directly and the other
// instances through the channel; notices from this instance coming back
// over the channel are skipped.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	origin string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisBridge(client *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{
		client: client,
		hub:    hub,
		origin: uuid.NewString(),
	}
}

// Start subscribes to the channel and relays notices until Stop.
func (b *RedisBridge) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	pubsub := b.client.Subscribe(ctx, ChangesChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		b.cancel()
		return fmt.Errorf("subscribe %s: %w", ChangesChannel, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.relay(msg.Payload)
			}
		}
	}()
	utils.InfoLogger.Infof("redis bridge listening on %s", ChangesChannel)
	return nil
}

func (b *RedisBridge) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		utils.ErrorLogger.Errorf("redis bridge: bad payload: %v", err)
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.PublishChange(env.Notice)
}

func (b *RedisBridge) PublishChange(n ChangeNotice) {
	b.hub.PublishChange(n)

	data, err := json.Marshal(envelope{Origin: b.origin, Notice: n})
	if err != nil {
		utils.ErrorLogger.Errorf("redis bridge: marshal: %v", err)
		return
	}
	if err := b.client.Publish(context.Background(), ChangesChannel, data).Err(); err != nil {
		utils.ErrorLogger.Errorf("redis bridge: publish: %v", err)
	}
}

func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}
