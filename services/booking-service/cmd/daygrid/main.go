// daygrid prints a booking-service day grid in the terminal and can book a range
// through the same selection flow the calendar page uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/client"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

func main() {
	var (
		baseURL    = flag.String("base-url", getenv("BASE_URL", "http://localhost:8083"), "booking-service base url")
		date       = flag.String("date", "", "day to show (YYYY-MM-DD, default today)")
		instructor = flag.String("instructor", "", "instructor whose bookings are shown (default first in roster)")
		room       = flag.String("room", "", "room to book")
		from       = flag.String("from", "", "first slot to select (HH:MM)")
		to         = flag.String("to", "", "last slot to select (HH:MM)")
		name       = flag.String("name", "", "booker name")
		course     = flag.String("course", "", "course")
		topic      = flag.String("topic", "", "topic")
		people     = flag.Int("people", 1, "attendees")
		password   = flag.String("password", getenv("BOOKING_PASSWORD", ""), "booking password (4+ characters)")
	)
	flag.Parse()

	logger := runtime.NewLogger("daygrid")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := client.New(*baseURL)
	if err != nil {
		fatal(err.Error())
	}
	remote, err := c.Config(ctx)
	if err != nil {
		fatal("fetch config: " + model.Reason(err))
	}
	cfg := grid.Config{StartHour: remote.StartHour, EndHour: remote.EndHour, SlotMinutes: remote.SlotMinutes, Rooms: remote.Rooms}
	if err := cfg.Validate(); err != nil {
		fatal("server grid config: " + err.Error())
	}

	cal := calendar.New(c, cfg, calendar.Options{Logger: logger})
	if err := cal.Init(ctx); err != nil {
		fatal("load: " + model.Reason(err))
	}
	if *instructor != "" {
		if err := cal.SetInstructor(ctx, *instructor); err != nil {
			fatal("load instructor: " + model.Reason(err))
		}
	}
	if *date != "" {
		if err := cal.SetDate(ctx, *date); err != nil {
			fatal("load date: " + model.Reason(err))
		}
	}

	if *room != "" {
		if err := book(ctx, cal, *room, *from, *to, calendar.Form{
			Name: *name, Course: *course, Topic: *topic, People: *people, Password: *password,
		}); err != nil {
			fatal("book: " + model.Reason(err))
		}
	}

	if remote.Title != "" {
		fmt.Println(remote.Title)
	}
	fmt.Printf("%s  instructor=%q\n\n", cal.Date(), cal.Instructor())
	frac, showNow := cal.NowIndicator()
	render(os.Stdout, cal.Layout(), frac, showNow)
}

// book drives the selection controller across [from, to] and submits the range.
func book(ctx context.Context, cal *calendar.Controller, room, from, to string, f calendar.Form) error {
	start, err := model.ParseClock(from)
	if err != nil {
		return model.Validationf("from: %v", err)
	}
	last := start
	if to != "" {
		if last, err = model.ParseClock(to); err != nil {
			return model.Validationf("to: %v", err)
		}
	}
	if !cal.PointerDown(room, start) {
		return model.Validationf("%s %s is not a free slot", room, start)
	}
	if last != start && !cal.PointerEnter(room, last) {
		cal.ReleaseOutside()
		return model.Validationf("%s %s-%s crosses an occupied slot", room, start, last)
	}
	r, ok := cal.PointerUp()
	if !ok {
		return model.Validationf("nothing selected")
	}
	f.Room, f.Start, f.End = r.Room, r.Start, r.End
	if err := cal.Submit(ctx, f); err != nil {
		return err
	}
	fmt.Printf("booked %s %s-%s\n\n", r.Room, r.Start, r.End)
	return nil
}

// render draws one character per slot: '.' free, '#' own booking, 'x' another
// instructor's block. Bookings are listed under the grid.
func render(w io.Writer, layout grid.Layout, nowFrac float64, showNow bool) {
	width := 0
	for _, row := range layout.Rows {
		width = max(width, len([]rune(row.Room)))
	}
	pad := strings.Repeat(" ", width+1)

	var hours strings.Builder
	for _, s := range layout.Slots {
		if s.Minute == 0 {
			hours.WriteString(strconv.Itoa(s.Hour % 10))
		} else {
			hours.WriteByte(' ')
		}
	}
	fmt.Fprintf(w, "%s%s\n", pad, hours.String())

	if showNow && len(layout.Slots) > 0 {
		pos := int(nowFrac * float64(len(layout.Slots)))
		pos = min(pos, len(layout.Slots)-1)
		fmt.Fprintf(w, "%s%s|\n", pad, strings.Repeat(" ", pos))
	}

	var legend []string
	for _, row := range layout.Rows {
		var line strings.Builder
		for _, col := range row.Columns {
			mark := "."
			switch col.Kind {
			case grid.Booked:
				mark = "#"
				legend = append(legend, fmt.Sprintf("%s %s-%s %s (%s)", row.Room, col.Start, col.End, col.Label, col.Detail))
			case grid.Blocked:
				mark = "x"
				legend = append(legend, fmt.Sprintf("%s %s-%s in use by %s", row.Room, col.Start, col.End, col.Label))
			}
			line.WriteString(strings.Repeat(mark, col.Span))
		}
		fmt.Fprintf(w, "%-*s %s\n", width, row.Room, line.String())
	}
	if len(legend) > 0 {
		fmt.Fprintln(w)
		for _, l := range legend {
			fmt.Fprintln(w, l)
		}
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
