package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobTypeCacheWarm   = "cache_warm"
	JobTypeHealthCheck = "health_check"
)

// JobMessage is the payload published to the worker subscription.
type JobMessage struct {
	Type        string    `json:"type"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	WarmJob          *WarmJob
	Logger           zerolog.Logger
}

// PubSubHandler receives job messages and dispatches them to the warm job.
type PubSubHandler struct {
	client     *pubsub.Client
	subscriber *pubsub.Subscriber
	warmJob    *WarmJob
	logger     zerolog.Logger
}

// NewPubSubHandler creates a handler attached to the configured subscription.
func NewPubSubHandler(ctx context.Context, config PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(config.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:     client,
		subscriber: subscriber,
		warmJob:    config.WarmJob,
		logger:     config.Logger,
	}, nil
}

// Start blocks receiving messages until the context is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Msg("starting pubsub message receiver")

	err := h.subscriber.Receive(ctx, h.handleMessage)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving messages: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		h.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg("failed to parse job message")
		// Malformed messages will never parse, so redelivery is pointless.
		msg.Ack()
		return
	}

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("job_type", job.Type).
		Logger()

	switch job.Type {
	case JobTypeCacheWarm:
		logger.Info().Msg("processing cache warm job")
		result := h.warmJob.Run(ctx)
		if result.Failed > 0 && result.Successful == 0 {
			logger.Error().
				Int("failed", result.Failed).
				Msg("cache warm job failed for all points, nacking for redelivery")
			msg.Nack()
			return
		}
		logger.Info().
			Int("successful", result.Successful).
			Int("failed", result.Failed).
			Dur("duration", result.Duration).
			Msg("cache warm job done")
		msg.Ack()

	case JobTypeHealthCheck:
		logger.Info().Msg("worker health check ok")
		msg.Ack()

	default:
		logger.Warn().Msg("unknown job type, acking to discard")
		msg.Ack()
	}
}
