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
	"printbill/internal/ubl"
)

// InvoiceService owns invoice creation (from quotes and by hand), in-place
// recalculation, status transitions, deletion and UBL rendering.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// LineInput is one hand-entered invoice line. Required fields are explicit;
// only the unit code is defaulted (to C62, "each").
type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	VATRate     float64
	UnitCode    string
}

// ManualInvoiceOptions carries the header-level input for a manual invoice.
type ManualInvoiceOptions struct {
	IssueDate        *time.Time
	DueDate          *time.Time
	InvoiceNumber    string
	PaymentReference string
	PaymentTerms     string
	BuyerReference   string
	VATExempt        bool
	VATExemptReason  string
}

type computedLines struct {
	lines     []models.InvoiceLine
	totalExcl float64
	totalVAT  float64
	vatRate   float64 // first non-zero line rate, 0 if none
}

// recalcLines computes per-line and aggregate totals from raw input. A
// VAT-exempt invoice forces every line rate to 0 and the VAT total to exactly
// zero, regardless of what the caller sent per line.
func recalcLines(inputs []LineInput, exempt bool) computedLines {
	var out computedLines
	for i, in := range inputs {
		qty := in.Quantity
		if qty < 0 {
			qty = 0
		}
		rate := in.VATRate
		if exempt {
			rate = 0
		}
		unitCode := in.UnitCode
		if unitCode == "" {
			unitCode = models.DefaultUnitCode
		}
		total := lineAmount(qty, in.UnitPrice)
		out.lines = append(out.lines, models.InvoiceLine{
			Description:         in.Description,
			Quantity:            qty,
			UnitCode:            unitCode,
			UnitPrice:           in.UnitPrice,
			LineExtensionAmount: total,
			VATRate:             rate,
			VATCategoryCode:     tax.Category(rate, exempt),
			Position:            i,
		})
		out.totalExcl += total
		if !exempt {
			out.totalVAT += vatAmount(total, rate)
			if out.vatRate == 0 && rate > 0 {
				out.vatRate = rate
			}
		}
	}
	out.totalExcl = round2(out.totalExcl)
	out.totalVAT = round2(out.totalVAT)
	if exempt {
		out.totalVAT = 0
	}
	return out
}

// CreateManualInvoice builds an invoice directly from raw lines, snapshotting
// supplier and customer exactly like a conversion does.
func (s *InvoiceService) CreateManualInvoice(ctx context.Context, clientID, actorID uint, lines []LineInput, opts ManualInvoiceOptions) (InvoiceResult, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResult{}, &NotFoundError{Entity: "client", ID: clientID}
		}
		return InvoiceResult{}, &PersistenceError{Op: "load client", Err: err}
	}
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return InvoiceResult{}, err
	}

	customer := snapshot.FromClient(&client)
	if missing := snapshot.MissingAddress(customer); len(missing) > 0 {
		fields := make([]string, len(missing))
		for i, f := range missing {
			fields[i] = "customer." + f
		}
		return InvoiceResult{}, &ValidationError{Fields: fields}
	}
	supplier := snapshot.FromSettings(settings)

	issueDate := time.Now()
	if opts.IssueDate != nil {
		issueDate = *opts.IssueDate
	}
	dueDate := defaultDueDate(issueDate, opts.DueDate, settings)

	calc := recalcLines(lines, opts.VATExempt)

	supplierJSON, err := json.Marshal(supplier)
	if err != nil {
		return InvoiceResult{}, &PersistenceError{Op: "encode supplier snapshot", Err: err}
	}
	customerJSON, err := json.Marshal(customer)
	if err != nil {
		return InvoiceResult{}, &PersistenceError{Op: "encode customer snapshot", Err: err}
	}

	inv := models.Invoice{
		ClientID:         clientID,
		Number:           opts.InvoiceNumber,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		Currency:         "EUR",
		Status:           models.InvoiceStatusDraft,
		TotalExcl:        calc.totalExcl,
		TotalVAT:         calc.totalVAT,
		TotalIncl:        round2(calc.totalExcl + calc.totalVAT),
		VATRate:          calc.vatRate,
		VATExempt:        opts.VATExempt,
		VATExemptReason:  opts.VATExemptReason,
		PaymentReference: opts.PaymentReference,
		PaymentTerms:     opts.PaymentTerms,
		BuyerReference:   opts.BuyerReference,
		SupplierSnapshot: string(supplierJSON),
		CustomerSnapshot: string(customerJSON),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return &PersistenceError{Op: "create invoice", Err: err}
		}
		if inv.Number == "" {
			inv.Number = fmt.Sprintf("INV-%s-%04d", issueDate.Format("200601"), inv.ID)
			if err := tx.Model(&inv).Update("number", inv.Number).Error; err != nil {
				return &PersistenceError{Op: "assign invoice number", Err: err}
			}
		}
		for i := range calc.lines {
			calc.lines[i].InvoiceID = inv.ID
		}
		if len(calc.lines) > 0 {
			if err := tx.Create(&calc.lines).Error; err != nil {
				return &PersistenceError{Op: "create invoice lines", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "create", "manual")
	})
	if err != nil {
		return InvoiceResult{}, err
	}
	return InvoiceResult{InvoiceID: inv.ID, InvoiceNumber: inv.Number}, nil
}

// UpdateManualInvoice recalculates the invoice from raw lines and replaces
// all prior lines in the same transaction as the header update. Snapshots are
// point-in-time copies and are deliberately left untouched.
func (s *InvoiceService) UpdateManualInvoice(ctx context.Context, invoiceID, actorID uint, lines []LineInput, opts ManualInvoiceOptions) (InvoiceResult, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResult{}, &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return InvoiceResult{}, &PersistenceError{Op: "load invoice", Err: err}
	}
	if inv.IsTerminal() {
		return InvoiceResult{}, &ConflictError{Entity: "invoice", Reason: string(inv.Status) + " invoices cannot be edited"}
	}

	var customer models.PartySnapshot
	if err := json.Unmarshal([]byte(inv.CustomerSnapshot), &customer); err != nil {
		return InvoiceResult{}, &PersistenceError{Op: "decode customer snapshot", Err: err}
	}
	if missing := snapshot.MissingAddress(customer); len(missing) > 0 {
		fields := make([]string, len(missing))
		for i, f := range missing {
			fields[i] = "customer." + f
		}
		return InvoiceResult{}, &ValidationError{Fields: fields}
	}

	calc := recalcLines(lines, opts.VATExempt)
	vatRate := calc.vatRate
	if vatRate == 0 {
		// All lines exempt or zero-rated: keep the previous header rate.
		vatRate = inv.VATRate
	}

	if opts.IssueDate != nil {
		inv.IssueDate = *opts.IssueDate
	}
	if opts.DueDate != nil {
		inv.DueDate = *opts.DueDate
	}
	if opts.InvoiceNumber != "" {
		inv.Number = opts.InvoiceNumber
	}
	if opts.PaymentReference != "" {
		inv.PaymentReference = opts.PaymentReference
	}
	if opts.PaymentTerms != "" {
		inv.PaymentTerms = opts.PaymentTerms
	}
	if opts.BuyerReference != "" {
		inv.BuyerReference = opts.BuyerReference
	}
	inv.VATExempt = opts.VATExempt
	inv.VATExemptReason = opts.VATExemptReason
	inv.VATRate = vatRate
	inv.TotalExcl = calc.totalExcl
	inv.TotalVAT = calc.totalVAT
	inv.TotalIncl = round2(calc.totalExcl + calc.totalVAT)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return &PersistenceError{Op: "delete invoice lines", Err: err}
		}
		if err := tx.Save(&inv).Error; err != nil {
			return &PersistenceError{Op: "update invoice", Err: err}
		}
		for i := range calc.lines {
			calc.lines[i].InvoiceID = inv.ID
		}
		if len(calc.lines) > 0 {
			if err := tx.Create(&calc.lines).Error; err != nil {
				return &PersistenceError{Op: "recreate invoice lines", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "update", "manual recalculation")
	})
	if err != nil {
		return InvoiceResult{}, err
	}
	return InvoiceResult{InvoiceID: inv.ID, InvoiceNumber: inv.Number}, nil
}

// statusRank orders the regular lifecycle; failed/cancelled sit outside it.
var statusRank = map[models.InvoiceStatus]int{
	models.InvoiceStatusDraft:     0,
	models.InvoiceStatusReady:     1,
	models.InvoiceStatusSent:      2,
	models.InvoiceStatusDelivered: 3,
	models.InvoiceStatusAccepted:  4,
	models.InvoiceStatusPaid:      5,
}

// UpdateStatus moves an invoice forward along draft -> ready -> sent ->
// delivered -> accepted -> paid, or to the terminal failed/cancelled states.
// Going backwards or leaving a terminal state is a conflict.
func (s *InvoiceService) UpdateStatus(ctx context.Context, invoiceID, actorID uint, next models.InvoiceStatus) error {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return &PersistenceError{Op: "load invoice", Err: err}
	}
	if inv.IsTerminal() {
		return &ConflictError{Entity: "invoice", Reason: "status " + string(inv.Status) + " is terminal"}
	}
	if next != models.InvoiceStatusFailed && next != models.InvoiceStatusCancelled {
		from, okFrom := statusRank[inv.Status]
		to, okTo := statusRank[next]
		if !okFrom || !okTo || to <= from {
			return &ConflictError{Entity: "invoice", Reason: fmt.Sprintf("cannot move from %s to %s", inv.Status, next)}
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&inv).Update("status", next).Error; err != nil {
			return &PersistenceError{Op: "update status", Err: err}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "status", string(next))
	})
}

// DeleteInvoice removes the invoice and its lines in one transaction, lines
// first.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID, actorID uint) error {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return &PersistenceError{Op: "load invoice", Err: err}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return &PersistenceError{Op: "delete invoice lines", Err: err}
		}
		if err := tx.Delete(&inv).Error; err != nil {
			return &PersistenceError{Op: "delete invoice", Err: err}
		}
		if inv.QuoteID != nil {
			// Free the quote for re-conversion.
			if err := tx.Model(&models.Quote{}).Where("id = ?", *inv.QuoteID).
				Updates(map[string]any{"status": models.QuoteStatusAccepted, "converted_invoice_id": nil}).Error; err != nil {
				return &PersistenceError{Op: "release quote", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "delete", "")
	})
}

// RecordPayment books a payment against the invoice; once the paid sum covers
// the gross total, the invoice flips to paid.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID, actorID uint, amount float64, date time.Time, method, note string) error {
	if amount <= 0 {
		return &ValidationError{Fields: []string{"amount"}}
	}
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return &PersistenceError{Op: "load invoice", Err: err}
	}
	if date.IsZero() {
		date = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Payment{
			InvoiceID: inv.ID, Date: date, Amount: amount, Method: method, Note: note,
		}).Error; err != nil {
			return &PersistenceError{Op: "create payment", Err: err}
		}
		var paid float64
		if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", inv.ID).
			Select("COALESCE(SUM(amount), 0)").Scan(&paid).Error; err != nil {
			return &PersistenceError{Op: "sum payments", Err: err}
		}
		if paid >= inv.TotalIncl && inv.Status != models.InvoiceStatusPaid {
			if err := tx.Model(&inv).Update("status", models.InvoiceStatusPaid).Error; err != nil {
				return &PersistenceError{Op: "mark paid", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Invoice", inv.ID, "payment", fmt.Sprintf("%.2f %s", amount, method))
	})
}

// GetInvoice loads an invoice with its lines in position order.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&inv, invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "invoice", ID: invoiceID}
		}
		return nil, &PersistenceError{Op: "load invoice", Err: err}
	}
	return &inv, nil
}

// RenderUBL serializes a persisted invoice into a Peppol BIS Billing 3.0 UBL
// document. The snapshots stored on the invoice are the single source of
// party data; current client/settings rows are never consulted.
func (s *InvoiceService) RenderUBL(ctx context.Context, invoiceID uint) ([]byte, error) {
	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	var supplier, customer models.PartySnapshot
	if err := json.Unmarshal([]byte(inv.SupplierSnapshot), &supplier); err != nil {
		return nil, &PersistenceError{Op: "decode supplier snapshot", Err: err}
	}
	if err := json.Unmarshal([]byte(inv.CustomerSnapshot), &customer); err != nil {
		return nil, &PersistenceError{Op: "decode customer snapshot", Err: err}
	}
	xml, err := ubl.BuildInvoice(inv, inv.Lines, supplier, customer)
	if err != nil {
		var missing *ubl.MissingFieldsError
		if errors.As(err, &missing) {
			return nil, &ValidationError{Fields: missing.Fields}
		}
		return nil, err
	}
	return xml, nil
}

// loadSettings fetches the single supplier settings row.
func (s *InvoiceService) loadSettings(ctx context.Context) (*models.CompanySettings, error) {
	var settings models.CompanySettings
	if err := s.db.WithContext(ctx).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Fields: []string{"companySettings"}}
		}
		return nil, &PersistenceError{Op: "load company settings", Err: err}
	}
	return &settings, nil
}
