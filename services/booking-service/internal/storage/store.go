// Package storage persists bookings and the instructor roster.
//
// Every write re-runs conflict.Validate against the stored bookings of the same
// date and room, whatever the client checked before submitting.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// PageSize is the admin listing page length.
const PageSize = 20

type Store interface {
	FetchDay(ctx context.Context, date, instructor string) (model.DaySnapshot, error)
	Create(ctx context.Context, in model.BookingInput) (model.Booking, error)
	Update(ctx context.Context, id string, in model.BookingInput, password string) (model.Booking, error)
	Delete(ctx context.Context, id, password string) error

	Instructors(ctx context.Context) ([]string, error)
	AddInstructor(ctx context.Context, name string) error
	RenameInstructor(ctx context.Context, oldName, newName string) error
	RemoveInstructor(ctx context.Context, name string) error

	List(ctx context.Context, page int, search string) (Page, error)
	ForceDelete(ctx context.Context, id string) error
}

// Page is one admin listing page, newest bookings first.
type Page struct {
	Bookings    []model.Booking `json:"bookings"`
	Total       int             `json:"total"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

func newPage(bookings []model.Booking, total, page int) Page {
	totalPages := max(1, (total+PageSize-1)/PageSize)
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return Page{Bookings: bookings, Total: total, TotalPages: totalPages, CurrentPage: page}
}

func normalizePage(page int) int {
	return max(1, page)
}

// splitDay turns one date's bookings into what instructor may see: their own
// bookings in full and everyone else's as room blocks. An empty instructor sees
// every booking and no blocks.
func splitDay(all []model.Booking, date, instructor string) model.DaySnapshot {
	snap := model.DaySnapshot{Bookings: []model.Booking{}, RoomBlocks: []model.RoomBlock{}}
	for _, b := range all {
		if b.Date != date {
			continue
		}
		if instructor == "" || b.Instructor == instructor {
			snap.Bookings = append(snap.Bookings, b.Public())
			continue
		}
		snap.RoomBlocks = append(snap.RoomBlocks, b.Block())
	}
	sort.SliceStable(snap.Bookings, func(i, j int) bool {
		return snap.Bookings[i].StartTime < snap.Bookings[j].StartTime
	})
	sort.SliceStable(snap.RoomBlocks, func(i, j int) bool {
		return snap.RoomBlocks[i].StartTime < snap.RoomBlocks[j].StartTime
	})
	return snap
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.ErrAuth
		}
		return fmt.Errorf("%w: %v", model.ErrAuth, err)
	}
	return nil
}

func bookingNotFound(id string) error {
	return fmt.Errorf("%w: booking %s", model.ErrNotFound, id)
}

func instructorNotFound(name string) error {
	return fmt.Errorf("%w: instructor %q", model.ErrNotFound, name)
}

func instructorExists(name string) error {
	return model.Validationf("instructor %q already exists", name)
}

func checkInstructorName(name string) error {
	if name == "" {
		return model.Validationf("instructor name is required")
	}
	return nil
}
