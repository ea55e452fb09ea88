package models

import "time"

// CompanySettings holds the supplier-side identity stamped on every outgoing
// document. A single row is expected.
type CompanySettings struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	CompanyName    string `gorm:"not null" json:"company_name"`
	Street         string `json:"street,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	City           string `json:"city,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	Address        string `json:"address,omitempty"` // legacy free-text address
	VATNumber      string `json:"vat_number,omitempty"`
	PeppolID       string `json:"peppol_id,omitempty"`
	PeppolScheme   string `json:"peppol_scheme,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	IBAN           string `json:"iban,omitempty"`
	BIC            string `json:"bic,omitempty"`
	DefaultDueDays int     `gorm:"default:14" json:"default_due_days"` // payment term when no due date is given
	DefaultVATRate float64 `gorm:"default:21" json:"default_vat_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
