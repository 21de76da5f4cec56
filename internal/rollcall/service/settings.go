package service

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/civicdesk/rollcall/internal/rollcall/store"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// SettingsService is the admin-facing side of the attendance policy.  Every
// decision takes one Snapshot at its start and reads nothing else.
type SettingsService struct {
	store    store.SettingsStore
	validate *validator.Validate
	clock    Clock
	logger   zerolog.Logger
}

func NewSettingsService(st store.SettingsStore, clock Clock, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		store:    st,
		validate: newSettingsValidator(),
		clock:    clock,
		logger:   logger,
	}
}

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, err := types.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

// Snapshot returns a value copy of the current policy.
func (s *SettingsService) Snapshot(ctx context.Context) (types.Settings, error) {
	st, err := s.store.GetSettings(ctx)
	if err != nil {
		return types.Settings{}, fmt.Errorf("settings snapshot: %w", err)
	}
	return st, nil
}

// Update validates and stores next as the whole new policy.
func (s *SettingsService) Update(ctx context.Context, next types.Settings) (types.Settings, error) {
	next.StartTime = strings.TrimSpace(next.StartTime)
	next.EndTime = strings.TrimSpace(next.EndTime)

	if err := s.validate.Struct(next); err != nil {
		rej := reject(KindInvalidSettings)
		rej.Fields = map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				rej.Fields[fe.Field()] = fe.Tag()
			}
		}
		rej.Err = err
		return types.Settings{}, rej
	}
	if next.TimeWindowEnabled && (next.StartTime == "" || next.EndTime == "") {
		rej := reject(KindInvalidSettings)
		rej.Reason = "start_time and end_time are required when the time window is enabled"
		return types.Settings{}, rej
	}

	next.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.PutSettings(ctx, next); err != nil {
		return types.Settings{}, fmt.Errorf("update settings: %w", err)
	}

	s.logger.Info().
		Bool("qr_enabled", next.QREnabled).
		Int("qr_expiry_seconds", next.QRExpirySeconds).
		Bool("time_window_enabled", next.TimeWindowEnabled).
		Str("start_time", next.StartTime).
		Str("end_time", next.EndTime).
		Int("punchout_min_minutes", next.PunchoutMinMinutes).
		Msg("attendance settings updated")
	return next, nil
}
