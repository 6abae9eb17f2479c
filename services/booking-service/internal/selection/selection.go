// Package selection tracks a drag selection of contiguous free cells in one room.
//
// The machine has two states. Begin moves Idle to Selecting, Extend recomputes the
// run between the anchor and the pointer, and End always returns to Idle, handing
// back the committed range when the selection is non-empty.
package selection

import "github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"

type State int

const (
	Idle State = iota
	Selecting
)

func (s State) String() string {
	if s == Selecting {
		return "selecting"
	}
	return "idle"
}

// Cell is one selectable grid column. End is the slot's declared end.
type Cell struct {
	Room    string
	Time    model.Clock
	End     model.Clock
	Booked  bool
	Blocked bool
}

func (c Cell) Free() bool {
	return !c.Booked && !c.Blocked
}

// Range is a committed selection, ready for the booking form.
type Range struct {
	Room  string      `json:"room"`
	Start model.Clock `json:"startTime"`
	End   model.Clock `json:"endTime"`
}

// Rows supplies a room's cells in column order.
type Rows interface {
	Cells(room string) []Cell
}

type Controller struct {
	rows     Rows
	state    State
	anchor   Cell
	selected []Cell
}

func New(rows Rows) *Controller {
	return &Controller{rows: rows}
}

// SetRows swaps the grid after a re-render and drops any selection on the old one.
func (c *Controller) SetRows(rows Rows) {
	c.rows = rows
	c.Reset()
}

func (c *Controller) State() State { return c.state }

// Selected returns a copy of the current selection.
func (c *Controller) Selected() []Cell {
	return append([]Cell(nil), c.selected...)
}

// Begin starts a selection at cell. It is refused outside Idle and on occupied cells.
func (c *Controller) Begin(cell Cell) bool {
	if c.state != Idle || !cell.Free() {
		return false
	}
	c.state = Selecting
	c.anchor = cell
	c.selected = []Cell{cell}
	return true
}

// Extend reselects every cell between the anchor and cell, in either direction.
// It is a no-op when cell is occupied, in another room, or when the run would
// cross a booked or blocked cell; the previous selection is kept in that case.
func (c *Controller) Extend(cell Cell) bool {
	if c.state != Selecting || !cell.Free() || cell.Room != c.anchor.Room || c.rows == nil {
		return false
	}
	cells := c.rows.Cells(c.anchor.Room)
	from, to := indexOf(cells, c.anchor.Time), indexOf(cells, cell.Time)
	if from < 0 || to < 0 {
		return false
	}
	lo, hi := min(from, to), max(from, to)
	for i := lo; i <= hi; i++ {
		if !cells[i].Free() {
			return false
		}
	}
	c.selected = append(c.selected[:0], cells[lo:hi+1]...)
	return true
}

// End returns to Idle. The committed range runs from the first cell's time to the
// last cell's declared end. Calling End while Idle reports nothing selected.
func (c *Controller) End() (Range, bool) {
	if c.state != Selecting {
		return Range{}, false
	}
	c.state = Idle
	if len(c.selected) == 0 {
		return Range{}, false
	}
	first, last := c.selected[0], c.selected[len(c.selected)-1]
	return Range{Room: first.Room, Start: first.Time, End: last.End}, true
}

// Reset returns to Idle and clears the selection.
func (c *Controller) Reset() {
	c.state = Idle
	c.anchor = Cell{}
	c.selected = nil
}

func indexOf(cells []Cell, t model.Clock) int {
	for i, cell := range cells {
		if cell.Time == t {
			return i
		}
	}
	return -1
}
