package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler applies one message inside the transaction that recorded it in the inbox.
type Handler func(ctx context.Context, tx pgx.Tx, meta kafkax.EventMeta, msg kafka.Message) error

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TxRunner runs fn in a transaction; *db.Pool satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Inbox deduplicates events by id.
type Inbox interface {
	Record(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error)
}

type Config struct {
	Brokers  string
	GroupID  string
	Topics   []string
	Attempts int
	Backoff  time.Duration
}

type Consumer struct {
	reader   Reader
	db       TxRunner
	inbox    Inbox
	handler  Handler
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

// NewReader builds a consumer-group reader over every configured topic.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

func New(logger *slog.Logger, reader Reader, txr TxRunner, in Inbox, cfg Config, handler Handler) *Consumer {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Consumer{
		reader:   reader,
		db:       txr,
		inbox:    in,
		handler:  handler,
		logger:   logger,
		attempts: attempts,
		backoff:  backoff,
	}
}

// Run fetches until ctx ends. Offsets are committed after the message is applied,
// or after the last failed attempt so one poison message cannot stall the group.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		if err := c.processWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("message dropped after retries", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit error", "err", err)
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = c.process(ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("message processing failed", "err", err, "attempt", attempt, "topic", msg.Topic)
		if attempt < c.attempts && !sleep(ctx, c.backoff) {
			return ctx.Err()
		}
	}
	return err
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		c.logger.Error("event without id ignored", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	var duplicate bool
	err := c.db.WithTx(ctxSpan, func(tx pgx.Tx) error {
		fresh, err := c.inbox.Record(ctxSpan, tx, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		return c.handler(ctxSpan, tx, meta, msg)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if duplicate {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
	}
	return nil
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
