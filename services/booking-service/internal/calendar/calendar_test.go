package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/selection"
	"github.com/stretchr/testify/require"
)

var clk = model.MustClock

type fakeCollab struct {
	mu        sync.Mutex
	days      map[string]model.DaySnapshot
	gates     map[string]chan struct{}
	started   chan string
	roster    []string
	rosterErr error
	fetchErr  error
	fetches   int

	createGate    chan struct{}
	createStarted chan struct{}
	created       []model.BookingInput
	updated       map[string]string
	deleted       []string
}

func newFake() *fakeCollab {
	return &fakeCollab{
		days:    map[string]model.DaySnapshot{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 4),
		updated: map[string]string{},
	}
}

func (f *fakeCollab) setDay(date, instructor string, snap model.DaySnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days[date+"|"+instructor] = snap
}

func (f *fakeCollab) gate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[date] = make(chan struct{})
}

func (f *fakeCollab) release(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gates[date])
	delete(f.gates, date)
}

func (f *fakeCollab) FetchDay(ctx context.Context, date, instructor string) (model.DaySnapshot, error) {
	f.mu.Lock()
	gate := f.gates[date]
	f.fetches++
	err := f.fetchErr
	snap := f.days[date+"|"+instructor]
	f.mu.Unlock()

	if gate != nil {
		f.started <- date
		select {
		case <-gate:
		case <-ctx.Done():
			return model.DaySnapshot{}, ctx.Err()
		}
	}
	return snap, err
}

func (f *fakeCollab) CreateBooking(ctx context.Context, in model.BookingInput) (model.Booking, error) {
	if f.createGate != nil {
		f.createStarted <- struct{}{}
		<-f.createGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return model.Booking{ID: "new"}.Apply(in), nil
}

func (f *fakeCollab) UpdateBooking(_ context.Context, id string, _ model.BookingInput, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = password
	return nil
}

func (f *fakeCollab) DeleteBooking(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCollab) ListInstructors(context.Context) ([]string, error) {
	return f.roster, f.rosterErr
}

var testCfg = grid.Config{StartHour: 9, EndHour: 13, SlotMinutes: 30, Rooms: []string{"R1", "R2"}}

func newController(f *fakeCollab) *Controller {
	return New(f, testCfg, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) },
	})
}

func kimDay() model.DaySnapshot {
	return model.DaySnapshot{
		Bookings: []model.Booking{
			{ID: "b1", Date: "2026-10-19", Room: "R1", Instructor: "Kim", StartTime: clk("09:00"), EndTime: clk("10:00"), Name: "Lee"},
		},
		RoomBlocks: []model.RoomBlock{
			{Room: "R2", StartTime: clk("11:00"), EndTime: clk("12:00"), Instructor: "Park"},
		},
	}
}

func form(room, start, end string) Form {
	return Form{Room: room, Start: clk(start), End: clk(end), Name: "Lee", Course: "Backend", Topic: "Go", Password: "1234"}
}

func TestInitPicksFirstInstructor(t *testing.T) {
	f := newFake()
	f.roster = []string{"Kim", "Park"}
	f.setDay("2026-10-19", "Kim", kimDay())

	c := newController(f)
	require.NoError(t, c.Init(context.Background()))
	require.Equal(t, "Kim", c.Instructor())
	require.Equal(t, []string{"Kim", "Park"}, c.Instructors())
	require.Len(t, c.Snapshot().Bookings, 1)

	c.Snapshot().Bookings[0].Name = "changed"
	require.Equal(t, "Lee", c.Snapshot().Bookings[0].Name, "Snapshot must return a copy")

	row, ok := c.Layout().Row("R1")
	require.True(t, ok)
	require.Equal(t, grid.Booked, row.Columns[0].Kind)
	require.Equal(t, 2, row.Columns[0].Span)
}

func TestInitWithoutRosterStillLoadsGrid(t *testing.T) {
	f := newFake()
	f.rosterErr = errors.New("roster down")
	f.setDay("2026-10-19", "", kimDay())

	c := newController(f)
	require.NoError(t, c.Init(context.Background()))
	require.Empty(t, c.Instructor())
	require.Len(t, c.Snapshot().Bookings, 1)
}

func TestStaleDayIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.setDay("2026-10-20", "", model.DaySnapshot{Bookings: []model.Booking{{ID: "old", Room: "R1", StartTime: clk("09:00"), EndTime: clk("09:30")}}})
	f.setDay("2026-10-21", "", model.DaySnapshot{Bookings: []model.Booking{{ID: "new", Room: "R2", StartTime: clk("10:00"), EndTime: clk("10:30")}}})
	f.gate("2026-10-20")

	c := newController(f)
	errCh := make(chan error, 1)
	go func() { errCh <- c.SetDate(ctx, "2026-10-20") }()
	require.Equal(t, "2026-10-20", <-f.started)

	require.NoError(t, c.SetDate(ctx, "2026-10-21"))
	f.release("2026-10-20")

	require.ErrorIs(t, <-errCh, ErrStale)
	require.Equal(t, "2026-10-21", c.Date())
	require.Equal(t, "new", c.Snapshot().Bookings[0].ID)
}

func TestFailedLoadKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.setDay("2026-10-19", "", kimDay())
	c := newController(f)
	require.NoError(t, c.Load(ctx))

	f.fetchErr = &model.RemoteError{Message: "backend down"}
	err := c.Load(ctx)
	require.Error(t, err)
	require.Equal(t, "backend down", model.Reason(err))
	require.Len(t, c.Snapshot().Bookings, 1)
}

func TestShiftAndToday(t *testing.T) {
	ctx := context.Background()
	c := newController(newFake())

	require.NoError(t, c.Shift(ctx, -1))
	require.Equal(t, "2026-10-18", c.Date())
	require.NoError(t, c.Shift(ctx, 14))
	require.Equal(t, "2026-11-01", c.Date())
	require.NoError(t, c.Today(ctx))
	require.Equal(t, "2026-10-19", c.Date())
	require.ErrorIs(t, c.SetDate(ctx, "tomorrow"), model.ErrValidation)
}

func TestPointerSelection(t *testing.T) {
	f := newFake()
	f.setDay("2026-10-19", "", kimDay())
	c := newController(f)
	require.NoError(t, c.Load(context.Background()))

	require.False(t, c.PointerDown("R1", clk("09:00")), "booked cell")
	require.True(t, c.PointerDown("R1", clk("10:00")))
	require.True(t, c.PointerEnter("R1", clk("11:00")))
	require.False(t, c.PointerEnter("R2", clk("11:00")), "other room")

	state, cells := c.Selection()
	require.Equal(t, selection.Selecting, state)
	require.Len(t, cells, 3)

	r, ok := c.PointerUp()
	require.True(t, ok)
	require.Equal(t, selection.Range{Room: "R1", Start: clk("10:00"), End: clk("11:30")}, r)

	require.True(t, c.PointerDown("R2", clk("09:00")))
	require.False(t, c.PointerEnter("R2", clk("12:30")), "run crosses a room block")
	r, ok = c.ReleaseOutside()
	require.True(t, ok)
	require.Equal(t, clk("09:30"), r.End)
	state, _ = c.Selection()
	require.Equal(t, selection.Idle, state)
}

func TestDayChangeResetsSelection(t *testing.T) {
	c := newController(newFake())
	require.NoError(t, c.Load(context.Background()))
	require.True(t, c.PointerDown("R1", clk("09:00")))

	require.NoError(t, c.Shift(context.Background(), 1))
	state, cells := c.Selection()
	require.Equal(t, selection.Idle, state)
	require.Empty(t, cells)
}

func TestSubmitRejectsLocallyWithoutContactingCollaborator(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.roster = []string{"Kim"}
	f.setDay("2026-10-19", "Kim", kimDay())
	c := newController(f)
	require.NoError(t, c.Init(ctx))

	require.ErrorIs(t, c.Submit(ctx, form("R1", "09:30", "10:30")), model.ErrConflict)
	require.ErrorIs(t, c.Submit(ctx, form("R2", "10:30", "11:30")), model.ErrConflict, "room block")

	short := form("R1", "10:00", "11:00")
	short.Password = "123"
	require.ErrorIs(t, c.Submit(ctx, short), model.ErrValidation)

	empty := form("R1", "10:00", "11:00")
	empty.Topic = "  "
	require.ErrorIs(t, c.Submit(ctx, empty), model.ErrValidation)

	require.ErrorIs(t, c.Submit(ctx, form("R1", "11:00", "10:00")), model.ErrValidation)
	require.ErrorIs(t, c.Submit(ctx, form("R1", "10:00", "10:45")), model.ErrValidation, "off the slot grid")
	require.ErrorIs(t, c.Submit(ctx, form("R1", "12:00", "14:00")), model.ErrValidation, "past closing")
	require.Empty(t, f.created)
}

func TestSubmitCreatesAndReloads(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.roster = []string{"Kim"}
	f.setDay("2026-10-19", "Kim", kimDay())
	c := newController(f)
	require.NoError(t, c.Init(ctx))
	before := f.fetches

	require.True(t, c.PointerDown("R1", clk("10:00")))
	_, ok := c.PointerUp()
	require.True(t, ok)

	require.NoError(t, c.Submit(ctx, form("R1", "10:00", "11:00")))
	require.Len(t, f.created, 1)
	require.Equal(t, "Kim", f.created[0].Instructor)
	require.Equal(t, "2026-10-19", f.created[0].Date)
	require.Equal(t, 1, f.created[0].People)
	require.Equal(t, before+1, f.fetches)
	require.False(t, c.Busy())
}

func TestSubmitWhileBusy(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.createGate = make(chan struct{})
	f.createStarted = make(chan struct{}, 1)
	c := newController(f)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Submit(ctx, form("R1", "10:00", "11:00")) }()
	<-f.createStarted

	require.True(t, c.Busy())
	require.ErrorIs(t, c.Submit(ctx, form("R2", "10:00", "11:00")), ErrBusy)
	require.ErrorIs(t, c.Delete(ctx, "b1", "1234"), ErrBusy)

	close(f.createGate)
	require.NoError(t, <-errCh)
	require.Len(t, f.created, 1)
}

func TestEditExcludesItself(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.roster = []string{"Kim"}
	f.setDay("2026-10-19", "Kim", kimDay())
	c := newController(f)
	require.NoError(t, c.Init(ctx))

	b, r, ok := c.BeginEdit("b1")
	require.True(t, ok)
	require.Equal(t, "Lee", b.Name)
	require.Equal(t, selection.Range{Room: "R1", Start: clk("09:00"), End: clk("10:00")}, r)
	require.Equal(t, "b1", c.Editing())

	require.NoError(t, c.Submit(ctx, form("R1", "09:00", "10:30")))
	require.Equal(t, "1234", f.updated["b1"])
	require.Empty(t, f.created)
	require.Empty(t, c.Editing())

	_, _, ok = c.BeginEdit("missing")
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	c := newController(f)

	require.ErrorIs(t, c.Delete(ctx, "b1", ""), model.ErrValidation)
	require.NoError(t, c.Delete(ctx, "b1", "1234"))
	require.Equal(t, []string{"b1"}, f.deleted)
}

func TestNowIndicator(t *testing.T) {
	c := newController(newFake())
	frac, ok := c.NowIndicator()
	require.True(t, ok)
	require.InDelta(t, 0.25, frac, 1e-9)
}
