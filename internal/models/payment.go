package models

import "time"

// Payment tied to an invoice.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	InvoiceID uint      `gorm:"not null;index" json:"invoice_id"`
	Date      time.Time `gorm:"not null" json:"date"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Method    string    `gorm:"size:30" json:"method"` // transfer, card, cash
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
