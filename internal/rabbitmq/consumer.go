package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	prefetch   = 20
	maxBackoff = 30 * time.Second
)

var (
	errDeliveriesClosed = errors.New("deliveries channel closed")
	// ErrMalformedMessage сообщение, которое не удастся обработать и после повтора.
	ErrMalformedMessage = errors.New("malformed message")
)

type Handler func(ctx context.Context, msg models.Message) error

// * Consumer читает очередь писем и переподключается к брокеру с экспоненциальной задержкой.
type Consumer struct {
	log   *slog.Logger
	url   string
	queue string
}

func NewConsumer(log *slog.Logger, url, queue string) *Consumer {
	return &Consumer{
		log:   log,
		url:   url,
		queue: queue,
	}
}

// * Run блокируется до отмены ctx.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	const op = "rabbitmq.Consumer.Run"

	log := c.log.With(slog.String("op", op), slog.String("queue", c.queue))

	backoff := time.Second

	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Warn("failed to dial broker", sl.Err(err), slog.Duration("retry_in", backoff))

			if !sleep(ctx, backoff) {
				return ctx.Err()
			}

			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second

		err = c.consume(ctx, conn, handle)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn("consume loop ended, reconnecting", sl.Err(err))

		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.log.Warn("failed to set qos", sl.Err(err))
	}

	if _, err := declare(ch, c.queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info("consumer started", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}

			if err := Dispatch(ctx, d.Body, handle); err != nil {
				if Requeue(err, d.Redelivered) {
					c.log.Error("failed to handle message, requeued", sl.Err(err))
					_ = d.Nack(false, true)
					continue
				}

				c.log.Warn("message dropped, mail is lost",
					sl.Err(err),
					slog.Bool("redelivered", d.Redelivered),
				)
				_ = d.Nack(false, false)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

// * Dispatch декодирует тело сообщения и передает его обработчику.
func Dispatch(ctx context.Context, body []byte, handle Handler) error {
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if msg.Email == "" {
		return fmt.Errorf("%w: no recipient", ErrMalformedMessage)
	}

	return handle(ctx, msg)
}

// * Requeue решает, вернуть ли сообщение в очередь. Ошибка доставки повторяется
// * один раз, битое сообщение не повторяется никогда.
func Requeue(err error, redelivered bool) bool {
	return !redelivered && !errors.Is(err, ErrMalformedMessage)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
