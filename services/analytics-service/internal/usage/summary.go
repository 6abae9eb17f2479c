package usage

// RoomUsage is the booked load of one room on one day.
type RoomUsage struct {
	Room          string  `json:"room"`
	Bookings      int     `json:"bookings"`
	BookedMinutes int     `json:"bookedMinutes"`
	People        int     `json:"people"`
	Utilization   float64 `json:"utilization"`
}

// DaySummary is the response of the usage endpoint.
type DaySummary struct {
	Date          string      `json:"date"`
	WindowMinutes int         `json:"windowMinutes"`
	Rooms         []RoomUsage `json:"rooms"`
	TotalBookings int         `json:"totalBookings"`
	TotalMinutes  int         `json:"totalMinutes"`
}

// Summarize orders rows by the configured rooms, filling rooms with no bookings,
// and computes utilization against the bookable window. Rooms present in rows but
// not configured are appended after the configured ones.
func Summarize(date string, rooms []string, windowMinutes int, rows []RoomUsage) DaySummary {
	byRoom := make(map[string]RoomUsage, len(rows))
	for _, r := range rows {
		byRoom[r.Room] = r
	}

	out := DaySummary{Date: date, WindowMinutes: windowMinutes, Rooms: make([]RoomUsage, 0, len(rooms))}
	add := func(r RoomUsage) {
		if windowMinutes > 0 {
			r.Utilization = float64(r.BookedMinutes) / float64(windowMinutes)
		}
		out.TotalBookings += r.Bookings
		out.TotalMinutes += r.BookedMinutes
		out.Rooms = append(out.Rooms, r)
	}
	for _, room := range rooms {
		r, ok := byRoom[room]
		if !ok {
			r = RoomUsage{Room: room}
		}
		delete(byRoom, room)
		add(r)
	}
	for _, r := range rows {
		if _, ok := byRoom[r.Room]; ok {
			add(r)
		}
	}
	return out
}
