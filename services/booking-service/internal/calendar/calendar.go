// Package calendar owns the client-side state of the booking grid: the viewed
// date and instructor, the day's snapshot and layout, the drag selection and the
// booking form submission.
//
// Fetches are keyed. A result that comes back after the date or instructor has
// changed, or after a newer fetch started, is dropped with ErrStale and the grid
// keeps showing the newer state.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/selection"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStale = errors.New("result no longer matches the current day or instructor")
	ErrBusy  = errors.New("another request is in progress")
)

// Collaborator persists bookings. client.HTTPClient is the production implementation.
type Collaborator interface {
	FetchDay(ctx context.Context, date, instructor string) (model.DaySnapshot, error)
	CreateBooking(ctx context.Context, in model.BookingInput) (model.Booking, error)
	UpdateBooking(ctx context.Context, id string, patch model.BookingInput, password string) error
	DeleteBooking(ctx context.Context, id, password string) error
	ListInstructors(ctx context.Context) ([]string, error)
}

// Form is the booking form as submitted. Date and instructor come from the view.
type Form struct {
	Room     string
	Start    model.Clock
	End      model.Clock
	Name     string
	Course   string
	Topic    string
	People   int
	Password string
}

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

type loadKey struct {
	seq        uint64
	date       string
	instructor string
}

type Controller struct {
	collab Collaborator
	cfg    grid.Config
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	date        string
	instructor  string
	instructors []string
	snapshot    model.DaySnapshot
	layout      grid.Layout
	sel         *selection.Controller
	seq         uint64
	busy        bool
	editing     string
}

func New(collab Collaborator, cfg grid.Config, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		collab: collab,
		cfg:    cfg,
		logger: opts.Logger,
		now:    opts.Now,
		date:   opts.Now().Format(model.DateLayout),
	}
	c.layout = grid.Build(cfg, availability.NewIndex(model.DaySnapshot{}))
	c.sel = selection.New(c.layout)
	return c
}

// Init loads the roster and the current day together. A roster failure only
// leaves the instructor unset; a day failure is returned.
func (c *Controller) Init(ctx context.Context) error {
	key := c.nextKey()

	var (
		roster []string
		snap   model.DaySnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := c.collab.ListInstructors(gctx)
		if err != nil {
			c.logger.Warn("instructor roster unavailable", "err", err)
			return nil
		}
		roster = names
		return nil
	})
	g.Go(func() error {
		var err error
		snap, err = c.collab.FetchDay(gctx, key.date, key.instructor)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.instructors = roster
	prev := c.instructor
	if !slices.Contains(roster, c.instructor) {
		c.instructor = ""
		if len(roster) > 0 {
			c.instructor = roster[0]
		}
	}
	changed := prev != c.instructor
	if !changed {
		if !c.current(key) {
			c.mu.Unlock()
			return ErrStale
		}
		c.apply(snap)
	}
	c.mu.Unlock()

	if changed {
		return c.Load(ctx)
	}
	return nil
}

// Load fetches the current day for the current instructor and replaces the
// snapshot wholesale. On failure the previous snapshot stays.
func (c *Controller) Load(ctx context.Context) error {
	key := c.nextKey()
	snap, err := c.collab.FetchDay(ctx, key.date, key.instructor)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(key) {
		c.logger.Debug("discarding stale day", "date", key.date, "instructor", key.instructor)
		return ErrStale
	}
	if err != nil {
		return err
	}
	c.apply(snap)
	return nil
}

func (c *Controller) SetDate(ctx context.Context, date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.Validationf("invalid date %q", date)
	}
	c.mu.Lock()
	c.date = date
	c.resetLocked()
	c.mu.Unlock()
	return c.Load(ctx)
}

// Shift moves the viewed date by days (negative moves back).
func (c *Controller) Shift(ctx context.Context, days int) error {
	c.mu.Lock()
	d, err := time.Parse(model.DateLayout, c.date)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.SetDate(ctx, d.AddDate(0, 0, days).Format(model.DateLayout))
}

func (c *Controller) Today(ctx context.Context) error {
	return c.SetDate(ctx, c.now().Format(model.DateLayout))
}

func (c *Controller) SetInstructor(ctx context.Context, name string) error {
	c.mu.Lock()
	c.instructor = name
	c.resetLocked()
	c.mu.Unlock()
	return c.Load(ctx)
}

// RefreshInstructors reloads the roster, keeping the current instructor when it
// is still listed.
func (c *Controller) RefreshInstructors(ctx context.Context) error {
	names, err := c.collab.ListInstructors(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.instructors = names
	keep := slices.Contains(names, c.instructor)
	if !keep {
		c.instructor = ""
		if len(names) > 0 {
			c.instructor = names[0]
		}
		c.resetLocked()
	}
	c.mu.Unlock()
	if keep {
		return nil
	}
	return c.Load(ctx)
}

// PointerDown starts a selection on the free cell of room at t.
func (c *Controller) PointerDown(room string, t model.Clock) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell, ok := c.layout.CellAt(room, t)
	if !ok {
		return false
	}
	return c.sel.Begin(cell)
}

func (c *Controller) PointerEnter(room string, t model.Clock) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell, ok := c.layout.CellAt(room, t)
	if !ok {
		return false
	}
	return c.sel.Extend(cell)
}

// PointerUp ends the selection. A committed range starts a new booking, so any
// pending edit is dropped.
func (c *Controller) PointerUp() (selection.Range, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.sel.End()
	if ok {
		c.editing = ""
	}
	return r, ok
}

// ReleaseOutside handles a release anywhere off the grid. It behaves like
// PointerUp so a drag can never be left in progress.
func (c *Controller) ReleaseOutside() (selection.Range, bool) {
	return c.PointerUp()
}

// CloseForm discards the selection and any pending edit.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// BeginEdit marks the booking id as the target of the next Submit and returns it
// with its range for the form.
func (c *Controller) BeginEdit(id string) (model.Booking, selection.Range, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.snapshot.Bookings {
		if b.ID == id {
			c.sel.Reset()
			c.editing = id
			return b, selection.Range{Room: b.Room, Start: b.StartTime, End: b.EndTime}, true
		}
	}
	return model.Booking{}, selection.Range{}, false
}

// Submit validates f locally, then creates a booking or updates the one being
// edited. Nothing is sent when validation or the conflict check fails.
func (c *Controller) Submit(ctx context.Context, f Form) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	in := model.BookingInput{
		Date:       c.date,
		Room:       f.Room,
		Instructor: c.instructor,
		StartTime:  f.Start,
		EndTime:    f.End,
		Name:       f.Name,
		Course:     f.Course,
		Topic:      f.Topic,
		People:     f.People,
		Password:   f.Password,
	}.Normalize()
	editing := c.editing
	if err := c.precheck(in, editing); err != nil {
		c.mu.Unlock()
		return err
	}
	c.busy = true
	c.mu.Unlock()

	var err error
	if editing != "" {
		password := in.Password
		in.Password = ""
		err = c.collab.UpdateBooking(ctx, editing, in, password)
	} else {
		_, err = c.collab.CreateBooking(ctx, in)
	}

	c.mu.Lock()
	c.busy = false
	if err == nil {
		c.resetLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.logger.Info("booking saved", "room", in.Room, "date", in.Date,
		"start", in.StartTime.String(), "end", in.EndTime.String(), "updated", editing != "")
	c.reloadAfterWrite(ctx)
	return nil
}

// Delete removes booking id with its password and reloads the day.
func (c *Controller) Delete(ctx context.Context, id, password string) error {
	if password == "" {
		return model.Validationf("password is required")
	}
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.mu.Unlock()

	err := c.collab.DeleteBooking(ctx, id, password)

	c.mu.Lock()
	c.busy = false
	if err == nil {
		c.resetLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.reloadAfterWrite(ctx)
	return nil
}

func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

func (c *Controller) Instructor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructor
}

func (c *Controller) Instructors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.instructors)
}

// Snapshot returns a copy of the current day.
func (c *Controller) Snapshot() model.DaySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.DaySnapshot{
		Bookings:   slices.Clone(c.snapshot.Bookings),
		RoomBlocks: slices.Clone(c.snapshot.RoomBlocks),
	}
}

func (c *Controller) Layout() grid.Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

func (c *Controller) Selection() (selection.State, []selection.Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.State(), c.sel.Selected()
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Editing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

// NowIndicator places the current-time marker on the viewed day.
func (c *Controller) NowIndicator() (float64, bool) {
	return grid.NowIndicator(c.cfg, c.Date(), c.now())
}

// precheck runs the same rules the store enforces, against the local snapshot.
// Callers hold mu.
func (c *Controller) precheck(in model.BookingInput, editing string) error {
	if err := in.CheckFields(true); err != nil {
		return err
	}
	if err := c.cfg.CheckRange(in.StartTime, in.EndTime); err != nil {
		return err
	}
	cand := conflict.FromInput(in, editing)
	if err := conflict.Validate(c.snapshot.Bookings, cand); err != nil {
		return err
	}
	return conflict.ValidateBlocks(c.snapshot.RoomBlocks, cand)
}

func (c *Controller) reloadAfterWrite(ctx context.Context) {
	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
		c.logger.Warn("reload after write failed", "err", err)
	}
}

func (c *Controller) nextKey() loadKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return loadKey{seq: c.seq, date: c.date, instructor: c.instructor}
}

// current reports whether key still describes the newest request. Callers hold mu.
func (c *Controller) current(key loadKey) bool {
	return key.seq == c.seq && key.date == c.date && key.instructor == c.instructor
}

// apply replaces the snapshot and rebuilds the layout. Callers hold mu.
func (c *Controller) apply(snap model.DaySnapshot) {
	c.snapshot = snap
	c.layout = grid.Build(c.cfg, availability.NewIndex(snap))
	c.sel.SetRows(c.layout)
}

// resetLocked clears the selection and pending edit. Callers hold mu.
func (c *Controller) resetLocked() {
	c.sel.Reset()
	c.editing = ""
}
