package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/outbox"
	"golang.org/x/crypto/bcrypt"
)

//go:embed schema.sql
var schema string

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

const bookingColumns = `id::text, booking_date::text, room, instructor, start_minute, end_minute,
	name, course, topic, people, password_hash, created_at`

// PostgresStore keeps bookings in Postgres. Writes lock the affected day and room,
// re-validate, and record an outbox event in the same transaction.
type PostgresStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *db.Pool, outboxRepo *outbox.Repository) *PostgresStore {
	return &PostgresStore{pool: pool, outbox: outboxRepo}
}

// Migrate applies the idempotent schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SeedInstructors adds names missing from the roster, keeping their order.
func (s *PostgresStore) SeedInstructors(ctx context.Context, names []string) error {
	for _, name := range names {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO instructors (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) FetchDay(ctx context.Context, date, instructor string) (model.DaySnapshot, error) {
	day, err := parseDate(date)
	if err != nil {
		return model.DaySnapshot{}, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_date = $1
		ORDER BY start_minute
	`, day)
	if err != nil {
		return model.DaySnapshot{}, err
	}
	all, err := scanBookings(rows)
	if err != nil {
		return model.DaySnapshot{}, err
	}
	return splitDay(all, date, instructor), nil
}

func (s *PostgresStore) Create(ctx context.Context, in model.BookingInput) (model.Booking, error) {
	in = in.Normalize()
	if err := in.CheckFields(true); err != nil {
		return model.Booking{}, err
	}
	hash, err := hashPassword(in.Password, bcrypt.DefaultCost)
	if err != nil {
		return model.Booking{}, err
	}
	b := model.Booking{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}.Apply(in)

	err = s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.checkSlot(ctx, tx, conflict.FromInput(in, "")); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO bookings
				(id, booking_date, room, instructor, start_minute, end_minute, name, course, topic, people, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, b.ID, mustDate(b.Date), b.Room, b.Instructor, int(b.StartTime), int(b.EndTime),
			b.Name, b.Course, b.Topic, b.People, hash, b.CreatedAt); err != nil {
			return translate(err)
		}
		return s.record(ctx, tx, outbox.EventBookingCreated, b, false)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, in model.BookingInput, password string) (model.Booking, error) {
	in = in.Normalize()
	if err := in.CheckFields(false); err != nil {
		return model.Booking{}, err
	}
	var updated model.Booking
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, hash, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkPassword(hash, password); err != nil {
			return err
		}
		if err := s.checkSlot(ctx, tx, conflict.FromInput(in, id)); err != nil {
			return err
		}
		updated = current.Apply(in)
		if _, err := tx.Exec(ctx, `
			UPDATE bookings
			SET booking_date = $2, room = $3, instructor = $4, start_minute = $5, end_minute = $6,
				name = $7, course = $8, topic = $9, people = $10
			WHERE id = $1
		`, id, mustDate(updated.Date), updated.Room, updated.Instructor, int(updated.StartTime), int(updated.EndTime),
			updated.Name, updated.Course, updated.Topic, updated.People); err != nil {
			return translate(err)
		}
		return s.record(ctx, tx, outbox.EventBookingUpdated, updated, false)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, password string) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, hash, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkPassword(hash, password); err != nil {
			return err
		}
		return s.remove(ctx, tx, current, false)
	})
}

func (s *PostgresStore) ForceDelete(ctx context.Context, id string) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		current, _, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.remove(ctx, tx, current, true)
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern in which the search
// text matches literally, as Booking.Matches does.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}

func (s *PostgresStore) List(ctx context.Context, page int, search string) (Page, error) {
	page = normalizePage(page)
	pattern := likePattern(search)
	const where = `
		WHERE $1 = '%%'
			OR lower(name) LIKE $1 ESCAPE '\' OR lower(topic) LIKE $1 ESCAPE '\'
			OR lower(room) LIKE $1 ESCAPE '\' OR lower(instructor) LIKE $1 ESCAPE '\'`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, pattern).Scan(&total); err != nil {
		return Page{}, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings`+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, pattern, PageSize, (page-1)*PageSize)
	if err != nil {
		return Page{}, err
	}
	bookings, err := scanBookings(rows)
	if err != nil {
		return Page{}, err
	}
	for i := range bookings {
		bookings[i] = bookings[i].Public()
	}
	return newPage(bookings, total, page), nil
}

func (s *PostgresStore) Instructors(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM instructors ORDER BY position`)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *PostgresStore) AddInstructor(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := checkInstructorName(name); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO instructors (name) VALUES ($1)`, name)
	if isPgCode(err, pgUniqueViolation) {
		return instructorExists(name)
	}
	return err
}

func (s *PostgresStore) RenameInstructor(ctx context.Context, oldName, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if err := checkInstructorName(newName); err != nil {
		return err
	}
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE instructors SET name = $2 WHERE name = $1`, oldName, newName)
		if isPgCode(err, pgUniqueViolation) {
			return instructorExists(newName)
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return instructorNotFound(oldName)
		}
		_, err = tx.Exec(ctx, `UPDATE bookings SET instructor = $2 WHERE instructor = $1`, oldName, newName)
		return err
	})
}

func (s *PostgresStore) RemoveInstructor(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM instructors WHERE name = $1`, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return instructorNotFound(name)
	}
	return nil
}

// checkSlot locks the candidate's day and room and runs the conflict validator
// over what is stored there.
func (s *PostgresStore) checkSlot(ctx context.Context, tx pgx.Tx, c conflict.Candidate) error {
	rows, err := tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_date = $1 AND room = $2
		FOR UPDATE
	`, mustDate(c.Date), c.Room)
	if err != nil {
		return err
	}
	existing, err := scanBookings(rows)
	if err != nil {
		return err
	}
	return conflict.Validate(existing, c)
}

func (s *PostgresStore) lockBooking(ctx context.Context, tx pgx.Tx, id string) (model.Booking, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, "", bookingNotFound(id)
	}
	rows, err := tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	if err != nil {
		return model.Booking{}, "", err
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, "", bookingNotFound(id)
	}
	if err != nil {
		return model.Booking{}, "", err
	}
	return rec.Booking, rec.PasswordHash, nil
}

func (s *PostgresStore) remove(ctx context.Context, tx pgx.Tx, b model.Booking, forced bool) error {
	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, b.ID); err != nil {
		return err
	}
	return s.record(ctx, tx, outbox.EventBookingDeleted, b, forced)
}

func (s *PostgresStore) record(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking, forced bool) error {
	if s.outbox == nil {
		return nil
	}
	evt, err := outbox.BookingEvent(eventType, b, forced)
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}

func scanRecord(row pgx.CollectableRow) (storedBooking, error) {
	var rec storedBooking
	var start, end int
	err := row.Scan(&rec.ID, &rec.Date, &rec.Room, &rec.Instructor, &start, &end,
		&rec.Name, &rec.Course, &rec.Topic, &rec.People, &rec.PasswordHash, &rec.CreatedAt)
	rec.StartTime, rec.EndTime = model.Clock(start), model.Clock(end)
	return rec, err
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, len(recs))
	for i, r := range recs {
		out[i] = r.Booking
	}
	return out, nil
}

func parseDate(date string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return time.Time{}, model.Validationf("invalid date %q", date)
	}
	return d, nil
}

// mustDate is for dates already checked by CheckFields.
func mustDate(date string) time.Time {
	d, _ := time.Parse(model.DateLayout, date)
	return d
}

// translate maps the exclusion constraint to a conflict; it fires when two
// writers pass the row lock check for an empty room at the same time.
func translate(err error) error {
	if isPgCode(err, pgExclusionViolation) {
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return err
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
