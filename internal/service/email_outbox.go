package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/config"
	"github.com/sgpti/sgpti-api/internal/observability"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/pkg/mailer"
)

// DefaultOutboxKey is the Redis list holding pending email jobs.
const DefaultOutboxKey = "sgpti:email:outbox"

// EmailJob is one notification email waiting for delivery.
type EmailJob struct {
	NotificationID uint   `json:"notification_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
	Text           string `json:"text"`
}

// EmailQueue accepts email jobs.
type EmailQueue interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// EmailOutboxConfig configures an EmailOutbox.
type EmailOutboxConfig struct {
	Mode        string
	Workers     int
	BufferSize  int
	SendTimeout time.Duration
	QueueKey    string
}

// EmailOutbox decouples email delivery from the request path. Inline mode
// delivers synchronously, memory mode uses a buffered channel drained by a
// worker pool, redis mode uses a list shared by every node.
type EmailOutbox struct {
	mode          string
	mailer        mailer.Mailer
	notifications repository.NotificationRepository
	redis         *redis.Client
	queueKey      string
	workers       int
	sendTimeout   time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	jobs   chan EmailJob
	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEmailOutbox builds an outbox. Redis mode requires a client.
func NewEmailOutbox(cfg EmailOutboxConfig, sender mailer.Mailer, notifications repository.NotificationRepository, redisClient *redis.Client, logger zerolog.Logger) (*EmailOutbox, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = config.EmailQueueMemory
	}
	switch mode {
	case config.EmailQueueInline, config.EmailQueueMemory:
	case config.EmailQueueRedis:
		if redisClient == nil {
			return nil, errors.New("redis email queue requires a redis client")
		}
	default:
		return nil, fmt.Errorf("unknown email queue mode %q", mode)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 256
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	key := cfg.QueueKey
	if key == "" {
		key = DefaultOutboxKey
	}

	outbox := &EmailOutbox{
		mode:          mode,
		mailer:        sender,
		notifications: notifications,
		redis:         redisClient,
		queueKey:      key,
		workers:       workers,
		sendTimeout:   timeout,
		logger:        logger.With().Str("component", "email_outbox").Str("mode", mode).Logger(),
		now:           time.Now,
	}
	if mode == config.EmailQueueMemory {
		outbox.jobs = make(chan EmailJob, buffer)
	}

	return outbox, nil
}

// Mode reports the queue mode in use.
func (o *EmailOutbox) Mode() string {
	return o.mode
}

// Enqueue accepts a job. Inline mode returns the delivery error.
func (o *EmailOutbox) Enqueue(ctx context.Context, job EmailJob) error {
	switch o.mode {
	case config.EmailQueueInline:
		return o.deliver(ctx, job)
	case config.EmailQueueRedis:
		payload, err := json.Marshal(job)
		if err != nil {
			return err
		}
		return o.redis.LPush(ctx, o.queueKey, payload).Err()
	default:
		o.mu.RLock()
		defer o.mu.RUnlock()
		if o.closed {
			return ErrOutboxClosed
		}
		select {
		case o.jobs <- job:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			observability.EmailDeliveries().WithLabelValues("dropped").Inc()
			return ErrOutboxFull
		}
	}
}

// Start launches the workers. It is a no-op in inline mode.
func (o *EmailOutbox) Start(ctx context.Context) {
	if o.mode == config.EmailQueueInline {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		switch o.mode {
		case config.EmailQueueRedis:
			go o.consumeRedis(workerCtx)
		default:
			go o.consumeMemory(workerCtx)
		}
	}
	o.logger.Info().Int("workers", o.workers).Msg("email outbox started")
}

// Close stops accepting jobs, drains the memory queue and waits for the workers.
func (o *EmailOutbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.jobs != nil {
		close(o.jobs)
	}
	o.mu.Unlock()

	if o.mode == config.EmailQueueRedis && o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *EmailOutbox) consumeMemory(ctx context.Context) {
	defer o.wg.Done()
	for job := range o.jobs {
		// Drain with a detached context so queued mail survives shutdown.
		_ = o.deliver(context.WithoutCancel(ctx), job)
	}
}

func (o *EmailOutbox) consumeRedis(ctx context.Context) {
	defer o.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := o.redis.BRPop(ctx, time.Second, o.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			o.logger.Warn().Err(err).Msg("failed to pop email job")
			time.Sleep(time.Second)
			continue
		}
		if len(result) != 2 {
			continue
		}

		var job EmailJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			o.logger.Warn().Err(err).Msg("invalid email job payload")
			continue
		}
		_ = o.deliver(ctx, job)
	}
}

func (o *EmailOutbox) deliver(ctx context.Context, job EmailJob) error {
	sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	err := o.mailer.Send(sendCtx, mailer.Message{
		To:      job.To,
		Subject: job.Subject,
		HTML:    job.HTML,
		Text:    job.Text,
	})
	if err != nil {
		observability.EmailDeliveries().WithLabelValues("failed").Inc()
		o.logger.Warn().Err(err).Uint("notification_id", job.NotificationID).Msg("email delivery failed")
		return err
	}

	observability.EmailDeliveries().WithLabelValues("sent").Inc()
	if job.NotificationID == 0 {
		return nil
	}
	if err := o.notifications.MarkEmailSent(ctx, job.NotificationID, o.now()); err != nil {
		o.logger.Warn().Err(err).Uint("notification_id", job.NotificationID).Msg("failed to flag notification email as sent")
		return err
	}
	return nil
}
