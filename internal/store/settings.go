package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// LoadAppSettings reads the stored app settings and fills in defaults.
// A missing record yields the defaults.
func LoadAppSettings(ctx context.Context, s Store) (model.AppSettings, error) {
	var settings model.AppSettings
	state, err := s.GetAppState(ctx, model.SettingsKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return settings.WithDefaults(), nil
	case err != nil:
		return settings, fmt.Errorf("load app settings: %w", err)
	}
	if err := state.Decode(&settings); err != nil {
		return settings, fmt.Errorf("decode app settings: %w", err)
	}
	return settings.WithDefaults(), nil
}

// SaveAppSettings validates and stores the app settings.
func SaveAppSettings(ctx context.Context, s Store, settings model.AppSettings) error {
	if err := model.ValidateSettings(settings); err != nil {
		return err
	}
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode app settings: %w", err)
	}
	return s.SetAppState(ctx, &model.AppState{Key: model.SettingsKey, Value: value})
}
