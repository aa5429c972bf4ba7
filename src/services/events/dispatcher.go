package events

import (
	"context"
	"fmt"
	"time"

	"go-order-graphql/src/infrastructure/log"
)

const (
	publishTimeout   = 5 * time.Second
	replayBatchSize  = 100
	replayMaxRetries = 3
)

// ReplayResult summarizes one replay run.
type ReplayResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type Dispatcher struct {
	logger    log.Logger
	publisher Publisher
	eventLog  EventLog
	sleep     func(time.Duration)
}

// NewDispatcher returns a dispatcher publishing through publisher. A nil
// publisher disables publishing; a nil eventLog drops failed events after
// logging them.
func NewDispatcher(logger log.Logger, publisher Publisher, eventLog EventLog) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		publisher: publisher,
		eventLog:  eventLog,
		sleep:     time.Sleep,
	}
}

// Dispatch publishes evt once. Publishing is best effort: the order is already
// persisted, so a failure is recorded for replay instead of failing the caller.
// The request's cancellation does not abort the publish.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) {
	if d.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := d.publisher.Publish(pubCtx, evt.Topic, evt.Data)
	if err == nil {
		d.logger.InfoWithExtra(ctx, "Order event published", map[string]any{"topic": evt.Topic, "orderId": evt.OrderID})
		return
	}

	d.logger.Exception(ctx, fmt.Sprintf("failed to publish %s event for order %s", evt.Topic, evt.OrderID), err)
	if d.eventLog == nil {
		return
	}
	if err := d.eventLog.StoreEventForReplay(pubCtx, evt); err != nil {
		d.logger.Exception(ctx, fmt.Sprintf("failed to store %s event for order %s for replay", evt.Topic, evt.OrderID), err)
	}
}

// ReplayFailedEvents republishes stored events oldest first, marking each as
// completed or failed.
func (d *Dispatcher) ReplayFailedEvents(ctx context.Context) (ReplayResult, error) {
	var result ReplayResult
	if d.publisher == nil || d.eventLog == nil {
		d.logger.Info(ctx, "Event replay skipped, no broker configured")
		return result, nil
	}

	stored, err := d.eventLog.GetUnreplayedEvents(ctx, replayBatchSize)
	if err != nil {
		d.logger.Exception(ctx, "failed to fetch unreplayed events", err)
		return result, fmt.Errorf("failed to fetch unreplayed events: %w", err)
	}

	result.Total = len(stored)
	if result.Total == 0 {
		d.logger.Info(ctx, "No events to replay")
		return result, nil
	}

	d.logger.Info(ctx, fmt.Sprintf("Starting replay of %d failed events", result.Total))

	for _, evt := range stored {
		if err := d.eventLog.MarkEventAsReplaying(ctx, evt.ID); err != nil {
			d.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as replaying: %v", evt.ID, err))
		}

		var pubErr error
		for attempt := 1; attempt <= replayMaxRetries; attempt++ {
			pubErr = d.publisher.Publish(ctx, evt.Topic, evt.EventData)
			if pubErr == nil {
				break
			}
			d.logger.Warn(ctx, fmt.Sprintf("Replay publish failed for event %s, attempt %d/%d: %v",
				evt.ID, attempt, replayMaxRetries, pubErr))
			if attempt < replayMaxRetries {
				d.sleep(time.Duration(attempt) * time.Second)
			}
		}

		if pubErr != nil {
			d.logger.Exception(ctx, fmt.Sprintf("Replay failed for event %s after %d retries", evt.ID, replayMaxRetries), pubErr)
			if err := d.eventLog.MarkEventAsFailed(ctx, evt.ID); err != nil {
				d.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as failed: %v", evt.ID, err))
			}
			result.Failed++
			continue
		}

		if err := d.eventLog.MarkEventAsCompleted(ctx, evt.ID); err != nil {
			d.logger.Warn(ctx, fmt.Sprintf("Failed to mark event %s as completed: %v", evt.ID, err))
		}
		result.Succeeded++
	}

	d.logger.Info(ctx, fmt.Sprintf("Replay completed: %d successful, %d failed", result.Succeeded, result.Failed))

	if result.Failed > 0 {
		return result, fmt.Errorf("replay completed with %d failures out of %d events", result.Failed, result.Total)
	}
	return result, nil
}
