package conflict

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

var clk = model.MustClock

func TestValidate(t *testing.T) {
	existing := []model.Booking{
		{ID: "b1", Date: "2026-10-19", Room: "R1", StartTime: clk("10:00"), EndTime: clk("11:00")},
		{ID: "b2", Date: "2026-10-20", Room: "R1", StartTime: clk("12:00"), EndTime: clk("13:00")},
	}

	cases := []struct {
		name string
		c    Candidate
		want error
	}{
		{"overlapping tail", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("10:30"), End: clk("11:30")}, model.ErrConflict},
		{"containing", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("09:00"), End: clk("12:00")}, model.ErrConflict},
		{"adjacent after", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("11:00"), End: clk("11:30")}, nil},
		{"adjacent before", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("09:30"), End: clk("10:00")}, nil},
		{"self excluded", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("10:00"), End: clk("11:00"), ExcludeID: "b1"}, nil},
		{"other room", Candidate{Date: "2026-10-19", Room: "R2", Start: clk("10:00"), End: clk("11:00")}, nil},
		{"other date", Candidate{Date: "2026-10-20", Room: "R1", Start: clk("10:00"), End: clk("11:00")}, nil},
		{"empty range", Candidate{Date: "2026-10-19", Room: "R3", Start: clk("10:00"), End: clk("10:00")}, model.ErrValidation},
		{"inverted range", Candidate{Date: "2026-10-19", Room: "R1", Start: clk("11:00"), End: clk("10:30")}, model.ErrValidation},
		{"up to day end", Candidate{Date: "2026-10-20", Room: "R1", Start: clk("13:00"), End: clk("24:00")}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(existing, tc.c)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateBlocks(t *testing.T) {
	blocks := []model.RoomBlock{{Room: "R1", StartTime: clk("14:00"), EndTime: clk("15:00"), Instructor: "Park"}}
	if err := ValidateBlocks(blocks, Candidate{Room: "R1", Start: clk("14:30"), End: clk("16:00")}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := ValidateBlocks(blocks, Candidate{Room: "R1", Start: clk("15:00"), End: clk("16:00")}); err != nil {
		t.Fatalf("adjacent range should pass, got %v", err)
	}
}
