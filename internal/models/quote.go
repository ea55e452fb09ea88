package models

import "time"

// QuoteStatus represents the lifecycle of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusConverted QuoteStatus = "converted"
)

// Quote is a priced offer for a set of print jobs and custom services.
// Conversion to an invoice snapshots everything it needs, so later edits to
// the quote never alter the invoice.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  uint      `gorm:"not null;index" json:"client_id"`
	Client    *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Date      time.Time `json:"date"`
	Status    QuoteStatus `gorm:"size:20;default:'draft'" json:"status"`

	DiscountPercent float64 `json:"discount_percent"` // applied to the net total
	MarginPercent   float64 `json:"margin_percent"`   // global margin, used when PerItemMargin is false
	PerItemMargin   bool    `json:"per_item_margin"`

	VATRate         float64 `json:"vat_rate"`
	VATExempt       bool    `json:"vat_exempt"`
	VATExemptReason string  `json:"vat_exempt_reason,omitempty"`

	// Cached totals, recomputed on every create/update.
	TotalNet   float64 `json:"total_net"`
	TotalVAT   float64 `json:"total_vat"`
	TotalGross float64 `json:"total_gross"`

	ConvertedInvoiceID *uint `json:"converted_invoice_id,omitempty"`

	Items       []QuoteItem  `gorm:"foreignKey:QuoteID" json:"items,omitempty"`
	CustomItems []CustomItem `gorm:"foreignKey:QuoteID" json:"custom_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteItem is one print job on a quote. Items are replaced wholesale on
// quote update, never edited in place.
type QuoteItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuoteID uint `gorm:"not null;index" json:"quote_id"`

	Name       string  `json:"name"`
	Quantity   float64 `gorm:"not null;default:1" json:"quantity"`
	WeightG    float64 `json:"weight_g"`     // printed weight in grams
	PrintHours float64 `json:"print_hours"`  // machine time
	MaterialID uint    `gorm:"index" json:"material_id"`
	Material   *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`

	// Cost-contributing extras, all absolute amounts per unit.
	SupportCost    float64 `json:"support_cost"`
	PostProcessing float64 `json:"post_processing"`
	AssemblyCost   float64 `json:"assembly_cost"`
	HourlyRate     float64 `json:"hourly_rate"` // custom machine/labour rate, per hour
	Surcharge      float64 `json:"surcharge"`   // manual correction

	MarginPercent float64 `json:"margin_percent"` // used when the quote has PerItemMargin

	// Computed at pricing time.
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`

	Position int `gorm:"default:0" json:"position"`
}

// CustomItem is a free-form billable line (service or bundle) on a quote.
type CustomItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuoteID uint `gorm:"not null;index" json:"quote_id"`

	Description   string  `json:"description"`
	Quantity      float64 `gorm:"not null;default:1" json:"quantity"`
	Unit          string  `gorm:"size:20;default:'pc'" json:"unit"`
	CostAmount    float64 `json:"cost_amount"`
	PriceAmount   float64 `json:"price_amount"`
	MarginPercent float64 `json:"margin_percent"`
	VATPercent    float64 `json:"vat_percent"`
	Optional      bool    `json:"optional"` // offered but not included in totals unless selected
	Selected      bool    `json:"selected"`
	GroupRef      string  `gorm:"size:50" json:"group_ref,omitempty"` // bundles alternative lines
}
