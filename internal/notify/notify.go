package notify

import (
	"context"
	"sync"

	"github.com/brieflyhq/briefly-back/internal/domain"
)

// Subscription is a per-job change feed. Every event carries the full
// current record; subscribers replace their copy, never merge.
type Subscription interface {
	Updates() <-chan *domain.SummaryJob
	Close() error
}

// Notifier propagates record updates from the worker to observers.
type Notifier interface {
	Publish(ctx context.Context, job *domain.SummaryJob) error
	Subscribe(ctx context.Context, jobID string) (Subscription, error)
}

// LocalNotifier is an in-process fallback used when Redis is not
// configured. Slow subscribers drop events rather than block the
// worker; the observer's initial read covers any gap.
type LocalNotifier struct {
	mu          sync.Mutex
	subscribers map[string]map[*localSubscription]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{
		subscribers: make(map[string]map[*localSubscription]struct{}),
	}
}

func (n *LocalNotifier) Publish(_ context.Context, job *domain.SummaryJob) error {
	if job == nil {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subscribers[job.ID] {
		clone := *job
		select {
		case sub.ch <- &clone:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(_ context.Context, jobID string) (Subscription, error) {
	sub := &localSubscription{
		notifier: n,
		jobID:    jobID,
		ch:       make(chan *domain.SummaryJob, 8),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribers[jobID] == nil {
		n.subscribers[jobID] = make(map[*localSubscription]struct{})
	}
	n.subscribers[jobID][sub] = struct{}{}
	return sub, nil
}

type localSubscription struct {
	notifier *LocalNotifier
	jobID    string
	ch       chan *domain.SummaryJob
	once     sync.Once
}

func (s *localSubscription) Updates() <-chan *domain.SummaryJob {
	return s.ch
}

func (s *localSubscription) Close() error {
	s.once.Do(func() {
		s.notifier.mu.Lock()
		delete(s.notifier.subscribers[s.jobID], s)
		if len(s.notifier.subscribers[s.jobID]) == 0 {
			delete(s.notifier.subscribers, s.jobID)
		}
		s.notifier.mu.Unlock()
		close(s.ch)
	})
	return nil
}
