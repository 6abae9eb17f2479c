package grid

import (
	"unicode/utf16"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// Palette holds the CSS classes bookings are colored with.
var Palette = []string{"color-blue", "color-green", "color-purple", "color-orange"}

// BlockedColor marks another instructor's block.
const BlockedColor = "color-blocked"

// SpanOf counts the grid columns [start,end) covers. An end that matches no slot
// is the closing boundary, so the span runs to the last slot. Never less than 1.
func SpanOf(start, end model.Clock, slots []TimeSlot) int {
	startIdx := IndexOf(slots, start)
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := IndexOf(slots, end)
	if endIdx < 0 {
		endIdx = len(slots)
	}
	return max(1, endIdx-startIdx)
}

// ColorOf picks a stable palette entry from the booking id (or name when there is no id).
func ColorOf(b model.Booking) string {
	key := b.ID
	if key == "" {
		key = b.Name
	}
	return Palette[paletteIndex(key, len(Palette))]
}

// paletteIndex is the 31-multiplier string hash over UTF-16 code units with
// 32-bit wraparound, so ids hash the same as in the browser calendar.
func paletteIndex(key string, n int) int {
	var h int32
	for _, c := range utf16.Encode([]rune(key)) {
		h = int32(c) + (h<<5 - h)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % int64(n))
}
