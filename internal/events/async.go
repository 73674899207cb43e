package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/model"
)

const defaultQueueSize = 1024

var (
	ErrQueueFull = errors.New("vote event queue full")
	ErrClosed    = errors.New("vote event publisher closed")
)

// BreakerReporter is implemented by publishers that guard the broker with a
// circuit breaker.
type BreakerReporter interface {
	BreakerState() string
}

// AsyncPublisher queues events and writes them from a single goroutine, so a
// slow or unreachable broker never holds up the vote request. Events are
// dropped, not blocked on, when the queue is full.
type AsyncPublisher struct {
	next  Publisher
	queue chan model.VoteEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts the delivery goroutine. Close stops it after the
// queue drains.
func NewAsyncPublisher(next Publisher, size int) *AsyncPublisher {
	if size <= 0 {
		size = defaultQueueSize
	}
	p := &AsyncPublisher{
		next:  next,
		queue: make(chan model.VoteEvent, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		// The request that produced ev has usually finished by now.
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.next.PublishVote(ctx, ev); err != nil {
			log.Warn().Err(err).Str("picture_id", ev.PictureID.String()).Msg("vote event not delivered")
		}
		cancel()
	}
}

// PublishVote enqueues ev and returns without waiting for the broker.
func (p *AsyncPublisher) PublishVote(_ context.Context, ev model.VoteEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		metrics.EventsPublished.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Pending reports how many events are waiting for delivery.
func (p *AsyncPublisher) Pending() int {
	return len(p.queue)
}

// BreakerState passes through the wrapped publisher's breaker state, or ""
// when it has none.
func (p *AsyncPublisher) BreakerState() string {
	if r, ok := p.next.(BreakerReporter); ok {
		return r.BreakerState()
	}
	return ""
}

// Close delivers what is already queued, then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.next.Close()
}
