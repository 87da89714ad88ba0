package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brieflyhq/briefly-back/internal/domain"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "summary_updates:"

// RedisNotifier propagates record updates over Redis pub/sub so
// observers on any API instance see worker mutations.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(ctx context.Context, addr, password string, db int) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisNotifier{client: client}, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) Publish(ctx context.Context, job *domain.SummaryJob) error {
	if job == nil {
		return nil
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	if err := n.client.Publish(ctx, channelPrefix+job.ID, payload).Err(); err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	pubsub := n.client.Subscribe(ctx, channelPrefix+jobID)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan *domain.SummaryJob, 8),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan *domain.SummaryJob
	once   sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	for message := range s.pubsub.Channel() {
		var job domain.SummaryJob
		if err := json.Unmarshal([]byte(message.Payload), &job); err != nil {
			continue
		}
		select {
		case s.ch <- &job:
		default:
		}
	}
}

func (s *redisSubscription) Updates() <-chan *domain.SummaryJob {
	return s.ch
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
