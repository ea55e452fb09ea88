package models

import "time"

// Material is a print-material catalog entry. Quote items and price rules
// reference it; its CRUD is handled elsewhere.
type Material struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"not null;index" json:"name"`
	UnitPrice     float64 `json:"unit_price"`     // catalog sale price per gram
	UnitCost      float64 `json:"unit_cost"`      // purchase cost per gram
	MarginPercent float64 `json:"margin_percent"` // default margin when no rule overrides it
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
