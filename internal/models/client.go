package models

import "time"

// Client entity. CRUD lives outside this subsystem; conversion and manual
// invoicing only read it and snapshot the fields they need.
type Client struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"not null;index" json:"name"` // company or person name
	Contact      string `json:"contact,omitempty"`          // primary contact person
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Street       string `json:"street,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	City         string `json:"city,omitempty"`
	CountryCode  string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	Address      string `json:"address,omitempty"`      // legacy free-text address, parsed as fallback
	VATNumber    string `gorm:"index" json:"vat_number,omitempty"`
	PeppolID     string `json:"peppol_id,omitempty"` // Peppol participant identifier
	PeppolScheme string `json:"peppol_scheme,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
