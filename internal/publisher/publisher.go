package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/summarist/internal/core"
	"github.com/example/summarist/pkg/messagequeue"
)

// QueuePublisher publishes subscription changes as JSON onto one queue.
type QueuePublisher struct {
	mq    messagequeue.MessageQueue
	queue string
}

func NewQueuePublisher(mq messagequeue.MessageQueue, queue string) *QueuePublisher {
	return &QueuePublisher{mq: mq, queue: queue}
}

func (p *QueuePublisher) PublishSubscriptionChanged(ctx context.Context, msg core.SubscriptionChangedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode subscription change %s: %w", msg.EventID, err)
	}
	return p.mq.Publish(ctx, p.queue, "application/json", body)
}
