package inbox

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository records consumed event ids so redelivered messages are applied once.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record inserts the event id inside tx and reports false when it was already seen.
// Recording and applying share the transaction, so a failed apply frees the id again.
func (r *Repository) Record(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
