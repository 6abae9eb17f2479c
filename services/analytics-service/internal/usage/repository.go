package usage

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/roombook/libs/db"
)

//go:embed schema.sql
var schema string

// Repository keeps one row per booking id. Deletions leave a tombstone so a
// created or updated event consumed after the deletion cannot revive the booking.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate applies the idempotent schema, including the inbox table.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Apply writes c inside tx. Created never overwrites an existing row, so an
// update consumed before its creation wins.
func (r *Repository) Apply(ctx context.Context, tx pgx.Tx, c Change) error {
	var err error
	switch c.Kind {
	case Deleted:
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_usage (booking_id, deleted, forced)
			VALUES ($1, true, $2)
			ON CONFLICT (booking_id)
			DO UPDATE SET deleted = true, forced = EXCLUDED.forced, updated_at = now()
		`, c.BookingID, c.Forced)
	case Created:
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_usage (booking_id, booking_date, room, instructor, start_minute, end_minute, people)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7)
			ON CONFLICT (booking_id) DO NOTHING
		`, c.BookingID, c.Date, c.Room, c.Instructor, c.StartMinute, c.EndMinute, c.People)
	case Updated:
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_usage (booking_id, booking_date, room, instructor, start_minute, end_minute, people)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7)
			ON CONFLICT (booking_id)
			DO UPDATE SET booking_date = EXCLUDED.booking_date,
			              room = EXCLUDED.room,
			              instructor = EXCLUDED.instructor,
			              start_minute = EXCLUDED.start_minute,
			              end_minute = EXCLUDED.end_minute,
			              people = EXCLUDED.people,
			              updated_at = now()
			WHERE NOT booking_usage.deleted
		`, c.BookingID, c.Date, c.Room, c.Instructor, c.StartMinute, c.EndMinute, c.People)
	default:
		return fmt.Errorf("unknown change kind %d", c.Kind)
	}
	return err
}

// Daily aggregates live bookings per room for date (YYYY-MM-DD).
func (r *Repository) Daily(ctx context.Context, date string) ([]RoomUsage, error) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT room, count(*)::int, COALESCE(sum(end_minute - start_minute), 0)::int, COALESCE(sum(people), 0)::int
		FROM booking_usage
		WHERE booking_date = $1 AND NOT deleted
		GROUP BY room
		ORDER BY room
	`, day)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RoomUsage, error) {
		var u RoomUsage
		err := row.Scan(&u.Room, &u.Bookings, &u.BookedMinutes, &u.People)
		return u, err
	})
}
