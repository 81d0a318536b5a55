package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrQueueFull = errors.New("queue is full")

var (
	_ Queuer = (*redisQueue)(nil)
	_ Queuer = (*memoryQueue)(nil)
	_ Queuer = nopQueue{}

	_ Drainer = (*memoryQueue)(nil)
)

// Drainer is implemented by queues which keep their events in process.
// Drain returns the buffered events without blocking.
type Drainer interface {
	Drain(qids ...string) []FavoriteEvent
}

// Queuer describes a queue of favorite events.
type Queuer interface {
	Push(ctx context.Context, qid string, event FavoriteEvent) error
	Pop(ctx context.Context, qids ...string) (string, FavoriteEvent, error)
}

// redisQueue represents a queue backed by redis lists.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues an event onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, event FavoriteEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, eventBytes).Err()
}

// Pop blocks until an event is available on one of the queue ids.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, FavoriteEvent, error) {
	var event FavoriteEvent
	var qid string
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return qid, event, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &event); err != nil {
		return qid, event, err
	}
	qid = infos[0]
	return qid, event, nil
}

type queuedEvent struct {
	qid   string
	event FavoriteEvent
}

// memoryQueue is an in-process bounded queue. It serves setups
// which mirror favorites without running a redis server.
type memoryQueue struct {
	events chan queuedEvent
}

func NewMemoryQueue(size int) Queuer {
	return &memoryQueue{events: make(chan queuedEvent, size)}
}

// Push never blocks. It fails with ErrQueueFull when the buffer is exhausted.
func (q *memoryQueue) Push(ctx context.Context, qid string, event FavoriteEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.events <- queuedEvent{qid, event}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pop returns the next event. Events pushed on a queue id
// not listed in qids are dropped.
func (q *memoryQueue) Pop(ctx context.Context, qids ...string) (string, FavoriteEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return "", FavoriteEvent{}, ctx.Err()
		case qe := <-q.events:
			for _, qid := range qids {
				if qid == qe.qid {
					return qe.qid, qe.event, nil
				}
			}
		}
	}
}

// Drain empties the buffer. Events of other queue ids are dropped.
func (q *memoryQueue) Drain(qids ...string) []FavoriteEvent {
	var events []FavoriteEvent
	for {
		select {
		case qe := <-q.events:
			for _, qid := range qids {
				if qid == qe.qid {
					events = append(events, qe.event)
					break
				}
			}
		default:
			return events
		}
	}
}

// nopQueue discards every event. It is used when no mirror is configured.
type nopQueue struct{}

func (nopQueue) Push(context.Context, string, FavoriteEvent) error { return nil }

func (nopQueue) Pop(ctx context.Context, _ ...string) (string, FavoriteEvent, error) {
	<-ctx.Done()
	return "", FavoriteEvent{}, ctx.Err()
}
