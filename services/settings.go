package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tryonapi/models"
)

// SettingsProvider is the explicit settings object handed to the
// presentation layer at startup. SetDarkMode is the single update path and
// performs the durable write as one unit.
type SettingsProvider interface {
	GetDarkMode(ctx context.Context, visitorID string) (bool, error)
	SetDarkMode(ctx context.Context, visitorID string, darkMode bool) error
}

type GormSettingsStore struct {
	DB *gorm.DB
}

func (s *GormSettingsStore) GetDarkMode(ctx context.Context, visitorID string) (bool, error) {
	var settings models.VisitorSettings
	result := s.DB.WithContext(ctx).Where("visitor_id = ?", visitorID).Take(&settings)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		// Light theme until the visitor toggles.
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return settings.DarkMode, nil
}

func (s *GormSettingsStore) SetDarkMode(ctx context.Context, visitorID string, darkMode bool) error {
	settings := models.VisitorSettings{VisitorID: visitorID, DarkMode: darkMode}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "visitor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dark_mode", "updated_at"}),
	}).Create(&settings).Error
}
