package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/config"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/handlers"
)

var defaultRooms = func() []string {
	rooms := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		rooms = append(rooms, fmt.Sprintf("Mentoring Room %d", i))
	}
	return rooms
}()

type serviceConfig struct {
	service  string
	port     string
	calendar handlers.CalendarConfig
	admin    handlers.AdminConfig

	instructors    []string
	databaseURL    string
	redisAddr      string
	kafkaBrokers   string
	localStorePath string
	ratePerMinute  int
	corsOrigins    []string
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		service:        config.String("SERVICE_NAME", "booking-service"),
		instructors:    config.List("INSTRUCTORS", []string{"Mentor Kim", "Mentor Lee", "Mentor Park"}),
		databaseURL:    config.String("DATABASE_URL", ""),
		redisAddr:      config.String("REDIS_ADDR", ""),
		kafkaBrokers:   config.String("KAFKA_BROKERS", ""),
		localStorePath: config.String("LOCAL_STORE_PATH", ""),
		corsOrigins:    config.List("CORS_ALLOWED_ORIGINS", nil),
	}

	var err error
	if cfg.port, err = config.Port("PORT", "8083"); err != nil {
		return serviceConfig{}, err
	}
	g := grid.Config{Rooms: config.List("ROOMS", defaultRooms)}
	if g.StartHour, err = config.Int("START_HOUR", 9); err != nil {
		return serviceConfig{}, err
	}
	if g.EndHour, err = config.Int("END_HOUR", 22); err != nil {
		return serviceConfig{}, err
	}
	if g.SlotMinutes, err = config.Int("SLOT_MINUTES", 30); err != nil {
		return serviceConfig{}, err
	}
	if err := g.Validate(); err != nil {
		return serviceConfig{}, fmt.Errorf("grid config: %w", err)
	}
	cfg.calendar = handlers.CalendarConfig{
		Config:   g,
		Title:    config.String("CALENDAR_TITLE", "Mentoring Room Booking"),
		Subtitle: config.String("CALENDAR_SUBTITLE", ""),
	}

	ttlHours, err := config.Int("ADMIN_TOKEN_TTL_HOURS", 8)
	if err != nil {
		return serviceConfig{}, err
	}
	cfg.admin = handlers.AdminConfig{
		Password: config.String("ADMIN_PASSWORD", ""),
		Secret:   config.String("JWT_SECRET", ""),
		TokenTTL: time.Duration(ttlHours) * time.Hour,
	}
	if cfg.ratePerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return serviceConfig{}, err
	}
	return cfg, nil
}
