package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"printbill/internal/models"
)

func TestConvertQuoteToInvoice(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	svc := NewInvoiceService(db)

	issue := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.ConvertQuoteToInvoice(context.Background(), quote.ID, 1, ConvertOptions{IssueDate: &issue})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	wantNumber := fmt.Sprintf("INV-202406-%04d", res.InvoiceID)
	if res.InvoiceNumber != wantNumber {
		t.Errorf("number: want %s, got %s", wantNumber, res.InvoiceNumber)
	}

	var inv models.Invoice
	if err := db.Preload("Lines").First(&inv, res.InvoiceID).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if inv.Status != models.InvoiceStatusDraft {
		t.Errorf("status: want draft, got %s", inv.Status)
	}
	// Scenario: VAT 21%, net 100.00 -> 100.00 / 21.00 / 121.00, code S.
	if inv.TotalExcl != 100 || inv.TotalVAT != 21 || inv.TotalIncl != 121 {
		t.Errorf("totals: got %v / %v / %v", inv.TotalExcl, inv.TotalVAT, inv.TotalIncl)
	}
	if inv.DueDate.Sub(inv.IssueDate) != 14*24*time.Hour {
		t.Errorf("due date: want issue+14d, got %v", inv.DueDate)
	}
	if inv.BuyerReference != fmt.Sprintf("QUOTE-%d", quote.ID) {
		t.Errorf("buyer reference: got %q", inv.BuyerReference)
	}
	if inv.SupplierSnapshot == "" || inv.CustomerSnapshot == "" {
		t.Error("snapshots must be persisted")
	}

	if len(inv.Lines) != 2 {
		t.Fatalf("lines: want 2, got %d", len(inv.Lines))
	}
	for _, line := range inv.Lines {
		if line.VATRate != 21 || line.VATCategoryCode != "S" {
			t.Errorf("line %q: rate %v code %q", line.Description, line.VATRate, line.VATCategoryCode)
		}
		if line.UnitCode != "C62" {
			t.Errorf("line %q: unit code %q", line.Description, line.UnitCode)
		}
	}
	// Second item stored only a line total; unit price is derived.
	for _, line := range inv.Lines {
		if line.Description == "Housing" && line.UnitPrice != 20 {
			t.Errorf("derived unit price: want 20, got %v", line.UnitPrice)
		}
	}

	var updated models.Quote
	if err := db.First(&updated, quote.ID).Error; err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if updated.Status != models.QuoteStatusConverted || updated.ConvertedInvoiceID == nil || *updated.ConvertedInvoiceID != inv.ID {
		t.Errorf("quote not marked converted: %+v", updated)
	}
}

func TestConvertQuoteNotFound(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	svc := NewInvoiceService(db)

	_, err := svc.ConvertQuoteToInvoice(context.Background(), 999, 1, ConvertOptions{})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "quote" {
		t.Fatalf("want quote NotFoundError, got %v", err)
	}
}

func TestConvertRejectsIncompleteSupplier(t *testing.T) {
	db := setupTestDB(t, t.Name())
	s := seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	if err := db.Model(s).Updates(map[string]any{"vat_number": "", "city": ""}).Error; err != nil {
		t.Fatalf("update settings: %v", err)
	}
	svc := NewInvoiceService(db)

	_, err := svc.ConvertQuoteToInvoice(context.Background(), quote.ID, 1, ConvertOptions{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	got := strings.Join(ve.Fields, ",")
	if !strings.Contains(got, "supplier.vatNumber") || !strings.Contains(got, "supplier.city") {
		t.Fatalf("want both missing fields in one error, got %v", ve.Fields)
	}
	// Nothing persisted.
	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 0 {
		t.Fatalf("invoice persisted despite validation failure")
	}
}

func TestConvertTwiceConflicts(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	svc := NewInvoiceService(db)

	if _, err := svc.ConvertQuoteToInvoice(context.Background(), quote.ID, 1, ConvertOptions{}); err != nil {
		t.Fatalf("first convert: %v", err)
	}
	_, err := svc.ConvertQuoteToInvoice(context.Background(), quote.ID, 1, ConvertOptions{})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError on second conversion, got %v", err)
	}
	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 1 {
		t.Fatalf("want exactly one invoice, got %d", count)
	}
}

func TestConvertBuyerReferenceChain(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	// Explicit buyer reference wins.
	q1 := seedQuote(t, db, client.ID)
	res, err := svc.ConvertQuoteToInvoice(context.Background(), q1.ID, 1, ConvertOptions{
		InvoiceNumber: "F-0001", BuyerReference: "PO-77",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var inv models.Invoice
	db.First(&inv, res.InvoiceID)
	if inv.BuyerReference != "PO-77" || inv.Number != "F-0001" {
		t.Errorf("got buyer ref %q number %q", inv.BuyerReference, inv.Number)
	}

	// Without explicit buyer reference the supplied number is used.
	q2 := seedQuote(t, db, client.ID)
	res, err = svc.ConvertQuoteToInvoice(context.Background(), q2.ID, 1, ConvertOptions{InvoiceNumber: "F-0002"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	inv = models.Invoice{}
	db.First(&inv, res.InvoiceID)
	if inv.BuyerReference != "F-0002" {
		t.Errorf("want buyer ref F-0002, got %q", inv.BuyerReference)
	}
}

func TestConvertExemptQuote(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	if err := db.Model(quote).Updates(map[string]any{
		"vat_exempt": true, "vat_exempt_reason": "Export",
		"total_vat": 0, "total_gross": 100,
	}).Error; err != nil {
		t.Fatalf("update quote: %v", err)
	}
	svc := NewInvoiceService(db)

	res, err := svc.ConvertQuoteToInvoice(context.Background(), quote.ID, 1, ConvertOptions{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var inv models.Invoice
	db.Preload("Lines").First(&inv, res.InvoiceID)
	if inv.TotalVAT != 0 || !inv.VATExempt || inv.VATExemptReason != "Export" {
		t.Errorf("exemption lost: %+v", inv)
	}
	for _, line := range inv.Lines {
		if line.VATCategoryCode != "E" {
			t.Errorf("line %q: want category E, got %q", line.Description, line.VATCategoryCode)
		}
	}
}
