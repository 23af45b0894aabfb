package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ChunkVault/config"
	"ChunkVault/internal/errs"
	"ChunkVault/internal/mq"
	"ChunkVault/internal/service"
	"ChunkVault/internal/task"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type dlqMessage struct {
	Object   string    `json:"object"`
	Reason   string    `json:"reason"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// RunCleanupWorker consumes chunk cleanup messages from RabbitMQ.
func RunCleanupWorker(ctx context.Context, svc *service.ObjectService) error {
	client, err := mq.Dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := config.AppConfig.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueCleanup,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	concurrency := config.AppConfig.CleanupConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limiter := newLimiter(config.AppConfig.CleanupRate, config.AppConfig.CleanupBurst)

	log.Info().Int("concurrency", concurrency).Int("prefetch", prefetch).Msg("cleanup worker consuming")
	return consume(ctx, deliveries, concurrency, func(ctx context.Context, d amqp.Delivery) {
		handleCleanupMessage(ctx, client, svc, limiter, d)
	})
}

// consume dispatches deliveries to at most concurrency handlers. It returns
// only after every started handler has finished, so callers may close the
// channel the handlers ack on.
func consume(ctx context.Context, deliveries <-chan amqp.Delivery, concurrency int, handle func(context.Context, amqp.Delivery)) error {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("cleanup worker: delivery channel closed")
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handle(ctx, d)
			}(delivery)
		}
	}
}

func newLimiter(limit float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if limit <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(limit), burst)
}

func handleCleanupMessage(ctx context.Context, client *mq.Client, svc *service.ObjectService, limiter *rate.Limiter, delivery amqp.Delivery) {
	msg, err := task.DecodeCleanupMessage(delivery.Body)
	if err != nil {
		log.Warn().Err(err).Msg("cleanup worker: dropping message")
		_ = delivery.Ack(false)
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			_ = delivery.Nack(false, true)
			return
		}
	}

	timeout := config.AppConfig.CleanupTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	err = task.ProcessCleanup(procCtx, svc, msg)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			_ = delivery.Nack(false, true)
			return
		}
		if shouldRetry(err) {
			err = scheduleRetry(ctx, client, msg, err)
		} else {
			err = markFailed(ctx, client, msg, err)
		}
		if err != nil {
			log.Error().Err(err).Str("object", msg.Object).Msg("cleanup worker: requeue failed")
			_ = delivery.Nack(false, true)
			return
		}
	}

	_ = delivery.Ack(false)
}

// shouldRetry reports whether a failed purge may succeed later. A service
// that is shutting down or a catalog that cannot be read are transient, as
// is any failure of the chunk store.
func shouldRetry(err error) bool {
	if errors.Is(err, task.ErrInvalidMessage) {
		return false
	}
	return errors.Is(err, errs.ErrCleanupFailure) ||
		errors.Is(err, errs.ErrStreamIO) ||
		errors.Is(err, errs.ErrNotReady) ||
		errors.Is(err, context.DeadlineExceeded)
}

func scheduleRetry(ctx context.Context, client *mq.Client, msg task.CleanupMessage, procErr error) error {
	maxRetry := config.AppConfig.CleanupRetryMax
	if maxRetry < 0 {
		maxRetry = 0
	}
	nextAttempt := msg.Attempt + 1
	if maxRetry == 0 || nextAttempt > maxRetry {
		return markFailed(ctx, client, msg, procErr)
	}

	delay := pickRetryDelay(nextAttempt, config.AppConfig.CleanupRetryDelays)
	log.Warn().
		Err(procErr).
		Str("object", msg.Object).
		Int("attempt", nextAttempt).
		Dur("delay", delay).
		Msg("cleanup retry scheduled")

	msg.Attempt = nextAttempt
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.PublishRetry(ctx, body, delay)
}

func markFailed(ctx context.Context, client *mq.Client, msg task.CleanupMessage, procErr error) error {
	dlq := dlqMessage{
		Object:   msg.Object,
		Reason:   msg.Reason,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: time.Now(),
	}
	log.Error().
		Err(procErr).
		Str("kind", "cleanup_failure").
		Str("object", msg.Object).
		Int("attempt", msg.Attempt).
		Msg("cleanup gave up")
	body, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	if err := client.PublishDLQ(ctx, body); err != nil {
		log.Error().Err(err).Msg("cleanup worker: dlq publish failed")
	}
	return nil
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}
