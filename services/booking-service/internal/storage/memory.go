package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

type MemoryOptions struct {
	// Path, when set, is a JSON file the store loads on open and rewrites after every change.
	Path        string
	Instructors []string
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
	Now      func() time.Time
	NewID    func() string
}

// MemoryStore is the single-process store used when no database is configured.
type MemoryStore struct {
	mu          sync.Mutex
	opts        MemoryOptions
	bookings    []storedBooking
	instructors []string
}

type storedBooking struct {
	model.Booking
	PasswordHash string `json:"passwordHash"`
}

type memoryFile struct {
	Bookings    []storedBooking `json:"bookings"`
	Instructors []string        `json:"instructors"`
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts MemoryOptions) (*MemoryStore, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	s := &MemoryStore{opts: opts, instructors: slices.Clone(opts.Instructors)}
	if opts.Path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(opts.Path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	var f memoryFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode local store %s: %w", opts.Path, err)
	}
	s.bookings = f.Bookings
	if f.Instructors != nil {
		s.instructors = f.Instructors
	}
	return s, nil
}

func (s *MemoryStore) FetchDay(_ context.Context, date, instructor string) (model.DaySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return splitDay(s.plain(), date, instructor), nil
}

func (s *MemoryStore) Create(_ context.Context, in model.BookingInput) (model.Booking, error) {
	in = in.Normalize()
	if err := in.CheckFields(true); err != nil {
		return model.Booking{}, err
	}
	hash, err := hashPassword(in.Password, s.opts.HashCost)
	if err != nil {
		return model.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := conflict.Validate(s.plain(), conflict.FromInput(in, "")); err != nil {
		return model.Booking{}, err
	}
	b := model.Booking{ID: s.opts.NewID(), CreatedAt: s.opts.Now().UTC()}.Apply(in)
	s.bookings = append(s.bookings, storedBooking{Booking: b, PasswordHash: hash})
	if err := s.persist(); err != nil {
		s.bookings = s.bookings[:len(s.bookings)-1]
		return model.Booking{}, err
	}
	return b, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, in model.BookingInput, password string) (model.Booking, error) {
	in = in.Normalize()
	if err := in.CheckFields(false); err != nil {
		return model.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Booking{}, bookingNotFound(id)
	}
	if err := checkPassword(s.bookings[idx].PasswordHash, password); err != nil {
		return model.Booking{}, err
	}
	if err := conflict.Validate(s.plain(), conflict.FromInput(in, id)); err != nil {
		return model.Booking{}, err
	}

	prev := s.bookings[idx]
	s.bookings[idx].Booking = prev.Booking.Apply(in)
	if err := s.persist(); err != nil {
		s.bookings[idx] = prev
		return model.Booking{}, err
	}
	return s.bookings[idx].Booking, nil
}

func (s *MemoryStore) Delete(_ context.Context, id, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return bookingNotFound(id)
	}
	if err := checkPassword(s.bookings[idx].PasswordHash, password); err != nil {
		return err
	}
	return s.removeAt(idx)
}

func (s *MemoryStore) ForceDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return bookingNotFound(id)
	}
	return s.removeAt(idx)
}

func (s *MemoryStore) List(_ context.Context, page int, search string) (Page, error) {
	page = normalizePage(page)

	s.mu.Lock()
	var matched []model.Booking
	for _, b := range s.bookings {
		if b.Matches(search) {
			matched = append(matched, b.Public())
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	start := min((page-1)*PageSize, len(matched))
	end := min(start+PageSize, len(matched))
	return newPage(matched[start:end:end], len(matched), page), nil
}

func (s *MemoryStore) Instructors(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.instructors...), nil
}

func (s *MemoryStore) AddInstructor(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := checkInstructorName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.instructors, name) {
		return instructorExists(name)
	}
	s.instructors = append(s.instructors, name)
	if err := s.persist(); err != nil {
		s.instructors = s.instructors[:len(s.instructors)-1]
		return err
	}
	return nil
}

// RenameInstructor renames the roster entry and moves every booking made under
// the old name to the new one.
func (s *MemoryStore) RenameInstructor(_ context.Context, oldName, newName string) error {
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if err := checkInstructorName(newName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.instructors, oldName)
	if idx < 0 {
		return instructorNotFound(oldName)
	}
	if oldName != newName && slices.Contains(s.instructors, newName) {
		return instructorExists(newName)
	}
	prevInstructors, prevBookings := slices.Clone(s.instructors), slices.Clone(s.bookings)
	s.instructors[idx] = newName
	for i := range s.bookings {
		if s.bookings[i].Instructor == oldName {
			s.bookings[i].Instructor = newName
		}
	}
	if err := s.persist(); err != nil {
		s.instructors, s.bookings = prevInstructors, prevBookings
		return err
	}
	return nil
}

// RemoveInstructor drops the roster entry only; existing bookings keep the name.
func (s *MemoryStore) RemoveInstructor(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.instructors, name)
	if idx < 0 {
		return instructorNotFound(name)
	}
	prev := slices.Clone(s.instructors)
	s.instructors = slices.Delete(s.instructors, idx, idx+1)
	if err := s.persist(); err != nil {
		s.instructors = prev
		return err
	}
	return nil
}

func (s *MemoryStore) plain() []model.Booking {
	out := make([]model.Booking, len(s.bookings))
	for i, b := range s.bookings {
		out[i] = b.Booking
	}
	return out
}

func (s *MemoryStore) indexOf(id string) int {
	for i, b := range s.bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) removeAt(idx int) error {
	prev := slices.Clone(s.bookings)
	s.bookings = slices.Delete(s.bookings, idx, idx+1)
	if err := s.persist(); err != nil {
		s.bookings = prev
		return err
	}
	return nil
}

// persist rewrites the file atomically. Callers hold mu.
func (s *MemoryStore) persist() error {
	if s.opts.Path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(memoryFile{Bookings: s.bookings, Instructors: s.instructors}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.opts.Path)
	tmp, err := os.CreateTemp(dir, ".roombook-*.json")
	if err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write local store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write local store: %w", err)
	}
	return os.Rename(tmp.Name(), s.opts.Path)
}
