package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"printbill/internal/models"
	"printbill/internal/snapshot"
	"printbill/internal/tax"
)

// ConvertOptions are the caller-supplied overrides for a conversion. Zero
// values mean "use the default".
type ConvertOptions struct {
	IssueDate        *time.Time // default: today
	DueDate          *time.Time // default: issue date + supplier default due days
	InvoiceNumber    string     // default: synthesized INV-YYYYMM-NNNN
	PaymentReference string
	PaymentTerms     string
	BuyerReference   string // default: invoice number input, else QUOTE-{id}
}

// InvoiceResult identifies a created or updated invoice.
type InvoiceResult struct {
	InvoiceID     uint   `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// ConvertQuoteToInvoice turns an accepted quote into an immutable invoice:
// it snapshots supplier and customer, copies the quote's cached totals, and
// writes the invoice with all its lines in a single transaction. A quote can
// be converted at most once; a second attempt returns a ConflictError.
func (s *InvoiceService) ConvertQuoteToInvoice(ctx context.Context, quoteID, actorID uint, opts ConvertOptions) (InvoiceResult, error) {
	var quote models.Quote
	err := s.db.WithContext(ctx).
		Preload("Items").Preload("CustomItems").Preload("Client").
		First(&quote, quoteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResult{}, &NotFoundError{Entity: "quote", ID: quoteID}
		}
		return InvoiceResult{}, &PersistenceError{Op: "load quote", Err: err}
	}
	if quote.ClientID == 0 || quote.Client == nil {
		return InvoiceResult{}, &ValidationError{Fields: []string{"clientId"}}
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return InvoiceResult{}, err
	}

	supplier := snapshot.FromSettings(settings)
	if missing := snapshot.Missing(supplier, false, true); len(missing) > 0 {
		fields := make([]string, len(missing))
		for i, f := range missing {
			fields[i] = "supplier." + f
		}
		return InvoiceResult{}, &ValidationError{Fields: fields}
	}
	customer := snapshot.FromClient(quote.Client)

	issueDate := time.Now()
	if opts.IssueDate != nil {
		issueDate = *opts.IssueDate
	}
	dueDate := defaultDueDate(issueDate, opts.DueDate, settings)

	buyerRef := opts.BuyerReference
	if buyerRef == "" {
		buyerRef = opts.InvoiceNumber
	}
	if buyerRef == "" {
		buyerRef = fmt.Sprintf("QUOTE-%d", quote.ID)
	}

	supplierJSON, err := json.Marshal(supplier)
	if err != nil {
		return InvoiceResult{}, &PersistenceError{Op: "encode supplier snapshot", Err: err}
	}
	customerJSON, err := json.Marshal(customer)
	if err != nil {
		return InvoiceResult{}, &PersistenceError{Op: "encode customer snapshot", Err: err}
	}

	inv := models.Invoice{
		QuoteID:          &quote.ID,
		ClientID:         quote.ClientID,
		Number:           opts.InvoiceNumber,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		Currency:         "EUR",
		Status:           models.InvoiceStatusDraft,
		TotalExcl:        quote.TotalNet,
		TotalVAT:         quote.TotalVAT,
		TotalIncl:        quote.TotalGross,
		VATRate:          quote.VATRate,
		VATExempt:        quote.VATExempt,
		VATExemptReason:  quote.VATExemptReason,
		PaymentReference: opts.PaymentReference,
		PaymentTerms:     opts.PaymentTerms,
		BuyerReference:   buyerRef,
		SupplierSnapshot: string(supplierJSON),
		CustomerSnapshot: string(customerJSON),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The unique index on quote_id is the real guard; this check turns
		// the common case into a readable conflict instead of a driver error.
		var existing int64
		if err := tx.Model(&models.Invoice{}).Where("quote_id = ?", quote.ID).Count(&existing).Error; err != nil {
			return &PersistenceError{Op: "check prior conversion", Err: err}
		}
		if existing > 0 {
			return &ConflictError{Entity: "quote", Reason: fmt.Sprintf("quote %d already converted", quote.ID)}
		}

		if err := tx.Create(&inv).Error; err != nil {
			return &PersistenceError{Op: "create invoice", Err: err}
		}
		// The synthesized number needs the generated id, hence the second
		// statement inside the same transaction.
		if inv.Number == "" {
			inv.Number = fmt.Sprintf("INV-%s-%04d", issueDate.Format("200601"), inv.ID)
			if err := tx.Model(&inv).Update("number", inv.Number).Error; err != nil {
				return &PersistenceError{Op: "assign invoice number", Err: err}
			}
		}

		lines := linesFromQuote(&quote)
		for i := range lines {
			lines[i].InvoiceID = inv.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return &PersistenceError{Op: "create invoice lines", Err: err}
			}
		}

		if err := tx.Model(&models.Quote{}).Where("id = ?", quote.ID).
			Updates(map[string]any{
				"status":               models.QuoteStatusConverted,
				"converted_invoice_id": inv.ID,
			}).Error; err != nil {
			return &PersistenceError{Op: "mark quote converted", Err: err}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "convert", fmt.Sprintf("from quote %d", quote.ID))
	})
	if err != nil {
		return InvoiceResult{}, err
	}
	return InvoiceResult{InvoiceID: inv.ID, InvoiceNumber: inv.Number}, nil
}

// linesFromQuote maps quote items and billable custom items to invoice lines.
func linesFromQuote(quote *models.Quote) []models.InvoiceLine {
	var lines []models.InvoiceLine
	pos := 0
	for _, item := range quote.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		unitPrice := item.UnitPrice
		if unitPrice == 0 && item.LineTotal != 0 {
			// Older quotes stored only the line total.
			unitPrice = round2(item.LineTotal / qty)
		}
		lines = append(lines, models.InvoiceLine{
			Description:         item.Name,
			Quantity:            qty,
			UnitCode:            models.DefaultUnitCode,
			UnitPrice:           unitPrice,
			LineExtensionAmount: lineAmount(qty, unitPrice),
			VATRate:             quote.VATRate,
			VATCategoryCode:     tax.Category(quote.VATRate, quote.VATExempt),
			Position:            pos,
		})
		pos++
	}
	for _, ci := range quote.CustomItems {
		if ci.Optional && !ci.Selected {
			continue
		}
		rate := ci.VATPercent
		if rate == 0 {
			rate = quote.VATRate
		}
		lines = append(lines, models.InvoiceLine{
			Description:         ci.Description,
			Quantity:            ci.Quantity,
			UnitCode:            models.DefaultUnitCode,
			UnitPrice:           ci.PriceAmount,
			LineExtensionAmount: lineAmount(ci.Quantity, ci.PriceAmount),
			VATRate:             rate,
			VATCategoryCode:     tax.Category(rate, quote.VATExempt),
			Position:            pos,
		})
		pos++
	}
	return lines
}

// defaultDueDate applies the supplier's configured payment term when the
// caller did not pass an explicit due date.
func defaultDueDate(issueDate time.Time, explicit *time.Time, settings *models.CompanySettings) time.Time {
	if explicit != nil {
		return *explicit
	}
	days := settings.DefaultDueDays
	if days <= 0 {
		days = 14
	}
	return issueDate.AddDate(0, 0, days)
}
