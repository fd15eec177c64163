package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalConfig contains options for LocalScheduler.
type LocalConfig struct {
	// Disabled makes Schedule fail with ErrPermissionDenied.
	Disabled        bool
	DeliveryTimeout time.Duration
}

type pending struct {
	timer       *time.Timer
	scheduledAt time.Time
	dueAt       time.Time
	n           Notification
}

// LocalScheduler arms an in-process timer per notification and hands it to
// a Sink when it fires.
type LocalScheduler struct {
	mu      sync.Mutex
	config  LocalConfig
	sink    Sink
	log     *slog.Logger
	pending map[ID]*pending
}

// NewLocal creates a LocalScheduler delivering to sink.
func NewLocal(sink Sink, config LocalConfig, log *slog.Logger) *LocalScheduler {
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 10 * time.Second
	}
	return &LocalScheduler{
		config:  config,
		sink:    sink,
		log:     log,
		pending: make(map[ID]*pending),
	}
}

// Schedule arms n to fire after delay.
func (s *LocalScheduler) Schedule(_ context.Context, n Notification, delay time.Duration) (ID, error) {
	if s.config.Disabled {
		return "", ErrPermissionDenied
	}
	if delay < 0 {
		delay = 0
	}

	id := ID(uuid.NewString())
	now := time.Now()
	p := &pending{scheduledAt: now, dueAt: now.Add(delay), n: n}

	s.mu.Lock()
	p.timer = time.AfterFunc(delay, func() { s.fire(id) })
	s.pending[id] = p
	s.mu.Unlock()

	s.log.Debug("notification scheduled", "id", id, "kind", n.Kind, "delay", delay.String())
	return id, nil
}

// Cancel stops id if it has not fired yet.
func (s *LocalScheduler) Cancel(_ context.Context, id ID) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if ok {
		s.log.Debug("notification cancelled", "id", id, "kind", p.n.Kind)
	}
	return nil
}

// Pending returns the ids that are armed and not yet fired, sorted.
func (s *LocalScheduler) Pending() []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]ID, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stop cancels everything still pending.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
}

func (s *LocalScheduler) fire(id ID) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DeliveryTimeout)
	defer cancel()

	d := Delivery{ID: id, Notification: p.n, ScheduledAt: p.scheduledAt, DueAt: p.dueAt, FiredAt: time.Now()}
	if err := s.sink.Deliver(ctx, d); err != nil {
		s.log.Warn("notification delivery failed", "id", id, "kind", p.n.Kind, "error", err)
	}
}
