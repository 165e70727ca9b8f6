package models

import "time"

type JsonModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VisitorSettings is the only durable state in the system: the theme
// preference per visitor, written on every toggle.
type VisitorSettings struct {
	JsonModel
	VisitorID string `gorm:"uniqueIndex;size:64" json:"visitor_id"`
	DarkMode  bool   `gorm:"default:false" json:"dark_mode"`
}

type ThemeIn struct {
	DarkMode *bool `json:"dark_mode" validate:"required"`
}

type ThemeOut struct {
	DarkMode bool `json:"dark_mode"`
}
