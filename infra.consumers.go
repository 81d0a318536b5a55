package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// mirrorConsumer applies favorite events to a durable storage.
type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   FavoritesStorage
}

func NewMirrorConsumer(logger *zap.Logger, q Queuer, repo FavoritesStorage) Consumer {
	return &mirrorConsumer{logger, q, repo}
}

// Consume runs until the context is done. Storage failures are logged
// and the event is dropped. On exit the events still buffered by an
// in-process queue are applied before returning.
func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	var event FavoriteEvent
	var err error
	var qid string
	for {
		qid, event, err = mc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			mc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			mc.drain(context.WithoutCancel(ctx), qids...)
			return nil
		}

		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		// a popped event is applied even when shutdown starts meanwhile.
		mc.apply(context.WithoutCancel(ctx), qid, event)
	}
}

func (mc *mirrorConsumer) drain(ctx context.Context, qids ...string) {
	d, ok := mc.queue.(Drainer)
	if !ok {
		return
	}
	events := d.Drain(qids...)
	for _, event := range events {
		mc.apply(ctx, FavoritesQueue, event)
	}
	if len(events) > 0 {
		mc.logger.Info("consumer: buffered events applied", zap.Int("events.count", len(events)))
	}
}

func (mc *mirrorConsumer) apply(ctx context.Context, qid string, event FavoriteEvent) {
	var err error
	switch event.Kind {
	case FavoriteAdded:
		if err = mc.repo.Add(ctx, event.Book); err != nil {
			mc.logger.Error("consumer: failed to add", zap.String("qid", qid), zap.String("book.id", event.Book.ID), zap.Error(err))
		}
	case FavoriteRemoved:
		if err = mc.repo.Delete(ctx, event.Book.ID); err != nil {
			mc.logger.Error("consumer: failed to delete", zap.String("qid", qid), zap.String("book.id", event.Book.ID), zap.Error(err))
		}
	case FavoritesCleared:
		if err = mc.repo.DeleteAll(ctx); err != nil {
			mc.logger.Error("consumer: failed to clear", zap.String("qid", qid), zap.Error(err))
		}
	default:
		mc.logger.Warn("consumer: received unknown event kind", zap.String("qid", qid), zap.String("event.kind", event.Kind), zap.String("book.id", event.Book.ID))
	}
}
