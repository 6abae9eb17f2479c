package usage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// Applier stores a decoded change; *Repository satisfies it.
type Applier interface {
	Apply(ctx context.Context, tx pgx.Tx, c Change) error
}

// NewHandler decodes booking events and applies them. Malformed events are logged
// and acknowledged; storage errors are returned so the consumer retries.
func NewHandler(store Applier, logger *slog.Logger) func(context.Context, pgx.Tx, kafkax.EventMeta, kafka.Message) error {
	return func(ctx context.Context, tx pgx.Tx, meta kafkax.EventMeta, msg kafka.Message) error {
		c, err := Decode(meta.EventType, msg.Value)
		if errors.Is(err, ErrMalformed) {
			logger.Error("invalid booking event", "err", err, "event_id", meta.EventID)
			return nil
		}
		if err != nil {
			return err
		}
		if err := store.Apply(ctx, tx, c); err != nil {
			return err
		}
		logger.Info("booking usage recorded",
			"booking_id", c.BookingID,
			"event_type", meta.EventType,
			"room", c.Room,
			"date", c.Date,
		)
		return nil
	}
}
