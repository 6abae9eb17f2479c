package grid

import (
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/selection"
)

type Kind int

const (
	Free Kind = iota
	Booked
	Blocked
)

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) String() string {
	switch k {
	case Booked:
		return "booked"
	case Blocked:
		return "blocked"
	default:
		return "free"
	}
}

// Column is one rendered cell of a room row. Booked and blocked columns span
// every slot their range covers; free columns are always one slot wide.
type Column struct {
	Kind      Kind        `json:"kind"`
	Start     model.Clock `json:"start"`
	End       model.Clock `json:"end"`
	Span      int         `json:"span"`
	Color     string      `json:"color,omitempty"`
	BookingID string      `json:"bookingId,omitempty"`
	Label     string      `json:"label,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

type Row struct {
	Room    string   `json:"room"`
	Columns []Column `json:"columns"`
}

type Layout struct {
	Slots  []TimeSlot  `json:"slots"`
	Rows   []Row       `json:"rows"`
	DayEnd model.Clock `json:"dayEnd"`
}

// Build lays out every configured room for the snapshot in x. Column spans in a
// row always add up to the slot count.
func Build(cfg Config, x *availability.Index) Layout {
	slots := cfg.Slots()
	layout := Layout{Slots: slots, DayEnd: cfg.DayEnd(), Rows: make([]Row, 0, len(cfg.Rooms))}
	for _, room := range cfg.Rooms {
		layout.Rows = append(layout.Rows, buildRow(room, slots, cfg.DayEnd(), x))
	}
	return layout
}

func buildRow(room string, slots []TimeSlot, dayEnd model.Clock, x *availability.Index) Row {
	row := Row{Room: room}
	for i := 0; i < len(slots); {
		slot := slots[i]
		col := Column{Kind: Free, Start: slot.Time, End: slot.End, Span: 1}

		if b, ok := x.BookingAt(room, slot.Time); ok {
			col = Column{
				Kind:      Booked,
				Start:     slot.Time,
				End:       min(b.EndTime, dayEnd),
				Color:     ColorOf(b),
				BookingID: b.ID,
				Label:     b.Name,
				Detail:    b.Topic,
			}
			col.Span = clampSpan(SpanOf(slot.Time, b.EndTime, slots), len(slots)-i)
		} else if blk, ok := x.BlockAt(room, slot.Time); ok {
			col = Column{
				Kind:   Blocked,
				Start:  slot.Time,
				End:    min(blk.EndTime, dayEnd),
				Color:  BlockedColor,
				Label:  blk.Instructor,
				Detail: "in use",
			}
			col.Span = clampSpan(SpanOf(slot.Time, blk.EndTime, slots), len(slots)-i)
		}

		row.Columns = append(row.Columns, col)
		i += col.Span
	}
	return row
}

func clampSpan(span, remaining int) int {
	return max(1, min(span, remaining))
}

// Row returns the row for room.
func (l Layout) Row(room string) (Row, bool) {
	for _, r := range l.Rows {
		if r.Room == room {
			return r, true
		}
	}
	return Row{}, false
}

// Cells projects a room row onto the selection controller's view: one cell per column.
func (l Layout) Cells(room string) []selection.Cell {
	row, ok := l.Row(room)
	if !ok {
		return nil
	}
	cells := make([]selection.Cell, 0, len(row.Columns))
	for _, c := range row.Columns {
		cells = append(cells, selection.Cell{
			Room:    room,
			Time:    c.Start,
			End:     c.End,
			Booked:  c.Kind == Booked,
			Blocked: c.Kind == Blocked,
		})
	}
	return cells
}

// CellAt returns the cell of room whose column starts at t.
func (l Layout) CellAt(room string, t model.Clock) (selection.Cell, bool) {
	for _, c := range l.Cells(room) {
		if c.Time == t {
			return c, true
		}
	}
	return selection.Cell{}, false
}

// NowIndicator returns where the current-time marker sits as a fraction of the
// day window, when date is today and now falls inside the window.
func NowIndicator(cfg Config, date string, now time.Time) (float64, bool) {
	if now.Format(model.DateLayout) != date {
		return 0, false
	}
	current := model.At(now.Hour(), now.Minute())
	start, end := cfg.DayStart(), cfg.DayEnd()
	if current < start || current > end || end <= start {
		return 0, false
	}
	return float64(current-start) / float64(end-start), true
}
