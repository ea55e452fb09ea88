package models

import "time"

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusReady     InvoiceStatus = "ready"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusDelivered InvoiceStatus = "delivered"
	InvoiceStatusAccepted  InvoiceStatus = "accepted"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusFailed    InvoiceStatus = "failed"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the durable, auditable billing record. Supplier and customer
// snapshots are stored as JSON blobs captured at creation time; they are
// copies, not references, and are never rewritten afterwards.
type Invoice struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	QuoteID  *uint `gorm:"uniqueIndex" json:"quote_id,omitempty"` // at most one invoice per quote
	ClientID uint  `gorm:"not null;index" json:"client_id"`

	Number    string    `gorm:"size:50;index" json:"number"` // never blank after creation
	IssueDate time.Time `gorm:"not null" json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
	Currency  string    `gorm:"size:3;not null;default:'EUR'" json:"currency"`
	Status    InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	TotalExcl float64 `json:"total_excl"`
	TotalVAT  float64 `json:"total_vat"`
	TotalIncl float64 `json:"total_incl"`

	// Representative rate for the document as a whole; individual lines can
	// carry their own rate.
	VATRate         float64 `json:"vat_rate"`
	VATExempt       bool    `json:"vat_exempt"`
	VATExemptReason string  `json:"vat_exempt_reason,omitempty"`

	PaymentReference string `gorm:"size:100" json:"payment_reference,omitempty"`
	PaymentTerms     string `gorm:"size:500" json:"payment_terms,omitempty"`
	BuyerReference   string `gorm:"size:100" json:"buyer_reference,omitempty"`

	SupplierSnapshot string `gorm:"type:text" json:"supplier_snapshot,omitempty"`
	CustomerSnapshot string `gorm:"type:text" json:"customer_snapshot,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether no further status transitions are allowed.
func (i *Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusFailed || i.Status == InvoiceStatusCancelled
}

// DefaultUnitCode is the UN/ECE Rec 20 "one/each" unit applied when a line
// does not specify its own.
const DefaultUnitCode = "C62"

// InvoiceLine is one billable line on an invoice. Lines are replaced
// wholesale on invoice edit.
type InvoiceLine struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"not null;index" json:"invoice_id"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	UnitCode    string  `gorm:"size:10;default:'C62'" json:"unit_code"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	// Quantity x UnitPrice, not independently editable.
	LineExtensionAmount float64 `json:"line_extension_amount"`

	VATRate         float64 `json:"vat_rate"`
	VATCategoryCode string  `gorm:"size:4" json:"vat_category_code"`

	Position int `gorm:"default:0" json:"position"`
}
