package main

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"START_HOUR", "END_HOUR", "SLOT_MINUTES", "ROOMS", "PORT", "RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(k, "")
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	g := cfg.calendar.Config
	if g.StartHour != 9 || g.EndHour != 22 || g.SlotMinutes != 30 || len(g.Rooms) != 10 {
		t.Fatalf("unexpected defaults %+v", g)
	}
	if len(g.Slots()) != 26 {
		t.Fatalf("expected 26 half-hour slots, got %d", len(g.Slots()))
	}
}

func TestLoadConfigRejectsBadWindow(t *testing.T) {
	t.Setenv("START_HOUR", "18")
	t.Setenv("END_HOUR", "9")
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected an inverted window to be rejected")
	}

	t.Setenv("START_HOUR", "9")
	t.Setenv("END_HOUR", "22")
	t.Setenv("SLOT_MINUTES", "half")
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected malformed SLOT_MINUTES to be rejected")
	}
}
