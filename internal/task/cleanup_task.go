package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ChunkVault/internal/mq"
	"ChunkVault/internal/service"

	"github.com/rs/zerolog/log"
)

// CleanupMessage is the payload sent to the cleanup worker.
type CleanupMessage struct {
	Object   string    `json:"object"`
	Reason   string    `json:"reason"`
	Attempt  int       `json:"attempt"`
	QueuedAt time.Time `json:"queued_at"`
}

// ErrInvalidMessage marks a payload the worker can never process.
var ErrInvalidMessage = errors.New("invalid cleanup message")

// DecodeCleanupMessage parses a delivery body.
func DecodeCleanupMessage(body []byte) (CleanupMessage, error) {
	var msg CleanupMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, errors.Join(ErrInvalidMessage, err)
	}
	if strings.TrimSpace(msg.Object) == "" {
		return msg, errors.Join(ErrInvalidMessage, errors.New("missing object name"))
	}
	return msg, nil
}

// Publisher enqueues failed chunk removals on RabbitMQ.
type Publisher struct {
	Now func() time.Time
}

// PublishCleanup queues the chunks of name for a retried removal.
func (p Publisher) PublishCleanup(ctx context.Context, name, reason string) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	body, err := json.Marshal(CleanupMessage{Object: name, Reason: reason, QueuedAt: now().UTC()})
	if err != nil {
		return err
	}
	client, err := mq.GetPublisher()
	if err != nil {
		return err
	}
	if err := client.PublishTask(ctx, body); err != nil {
		return err
	}
	log.Info().Str("object", name).Str("reason", reason).Msg("chunk cleanup queued")
	return nil
}

// ProcessCleanup removes the chunks named by msg unless they belong to a
// committed record or an open stream.
func ProcessCleanup(ctx context.Context, svc *service.ObjectService, msg CleanupMessage) error {
	removed, err := svc.PurgeOrphan(ctx, msg.Object)
	if err != nil {
		return err
	}
	log.Info().
		Str("object", msg.Object).
		Int("attempt", msg.Attempt).
		Bool("removed", removed).
		Msg("cleanup processed")
	return nil
}
