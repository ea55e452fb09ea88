package models

import "time"

// PriceRule is a pricing override scoped to exactly one material, optionally
// narrowed to a client or a named segment. Multiple rules may exist per
// material; resolution picks at most one (see internal/pricing).
type PriceRule struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MaterialID uint   `gorm:"not null;index" json:"material_id"`
	ClientID   *uint  `gorm:"index" json:"client_id,omitempty"` // nil = not client-scoped
	Segment    string `gorm:"size:50" json:"segment,omitempty"`

	MinQty        float64  `json:"min_qty"`                    // threshold, rule applies from this quantity up
	PricePerUnit  *float64 `json:"price_per_unit,omitempty"`   // absolute override
	MarginPercent *float64 `json:"margin_percent,omitempty"`   // margin override
	ValidFrom     *time.Time `json:"valid_from,omitempty"`     // nil = open start
	ValidTo       *time.Time `json:"valid_to,omitempty"`       // nil = open end
	Active        bool       `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidAt reports whether the rule's validity window covers t.
func (r *PriceRule) ValidAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && t.After(*r.ValidTo) {
		return false
	}
	return true
}
