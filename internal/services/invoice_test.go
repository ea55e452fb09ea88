package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"printbill/internal/models"
)

func manualLines() []LineInput {
	return []LineInput{
		{Description: "Design work", Quantity: 2, UnitPrice: 50, VATRate: 21},
		{Description: "Shipping", Quantity: 1, UnitPrice: 10, VATRate: 0},
	}
}

func TestCreateManualInvoiceTotals(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, manualLines(), ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, err := svc.GetInvoice(context.Background(), res.InvoiceID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if inv.TotalExcl != 110 {
		t.Errorf("total excl: want 110, got %v", inv.TotalExcl)
	}
	if inv.TotalVAT != 21 {
		t.Errorf("total vat: want 21, got %v", inv.TotalVAT)
	}
	if inv.TotalIncl != 131 {
		t.Errorf("total incl: want 131, got %v", inv.TotalIncl)
	}
	// Representative rate is the first non-zero line rate.
	if inv.VATRate != 21 {
		t.Errorf("vat rate: want 21, got %v", inv.VATRate)
	}
	if inv.Number == "" {
		t.Error("invoice number must never be blank after creation")
	}
	if len(inv.Lines) != 2 {
		t.Fatalf("lines: want 2, got %d", len(inv.Lines))
	}
	if inv.Lines[0].LineExtensionAmount != 100 || inv.Lines[1].LineExtensionAmount != 10 {
		t.Errorf("line extensions: got %v and %v", inv.Lines[0].LineExtensionAmount, inv.Lines[1].LineExtensionAmount)
	}
	if inv.Lines[1].VATCategoryCode != "Z" {
		t.Errorf("zero-rated line: want Z, got %q", inv.Lines[1].VATCategoryCode)
	}
}

func TestCreateManualInvoiceDefaultDueDate(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db) // default_due_days = 14
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	issue := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, manualLines(), ManualInvoiceOptions{IssueDate: &issue})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, _ := svc.GetInvoice(context.Background(), res.InvoiceID)
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !inv.DueDate.Equal(want) {
		t.Errorf("due date: want 2024-01-15, got %v", inv.DueDate)
	}
}

func TestCreateManualInvoiceExemptZeroesVAT(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	// Input rates must be ignored wholesale under exemption.
	lines := []LineInput{
		{Description: "A", Quantity: 1, UnitPrice: 100, VATRate: 21},
		{Description: "B", Quantity: 3, UnitPrice: 25, VATRate: 6},
	}
	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, lines, ManualInvoiceOptions{
		VATExempt: true, VATExemptReason: "Export",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, _ := svc.GetInvoice(context.Background(), res.InvoiceID)
	if inv.TotalVAT != 0 {
		t.Errorf("total vat: want exactly 0, got %v", inv.TotalVAT)
	}
	if inv.TotalIncl != inv.TotalExcl {
		t.Errorf("gross must equal net when exempt: %v vs %v", inv.TotalIncl, inv.TotalExcl)
	}
	for _, line := range inv.Lines {
		if line.VATRate != 0 || line.VATCategoryCode != "E" {
			t.Errorf("line %q: rate %v code %q", line.Description, line.VATRate, line.VATCategoryCode)
		}
	}
}

func TestCreateManualInvoiceNegativeQuantityFloored(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1,
		[]LineInput{{Description: "A", Quantity: -5, UnitPrice: 10, VATRate: 21}}, ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inv, _ := svc.GetInvoice(context.Background(), res.InvoiceID)
	if inv.TotalExcl != 0 || inv.Lines[0].Quantity != 0 {
		t.Errorf("negative quantity must floor at 0: %+v", inv.Lines[0])
	}
}

func TestCreateManualInvoiceIncompleteCustomer(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	if err := db.Model(client).Updates(map[string]any{"street": "", "address": "", "postal_code": ""}).Error; err != nil {
		t.Fatalf("update client: %v", err)
	}
	svc := NewInvoiceService(db)

	_, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, manualLines(), ManualInvoiceOptions{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	got := strings.Join(ve.Fields, ",")
	if !strings.Contains(got, "customer.street") || !strings.Contains(got, "customer.postalCode") {
		t.Fatalf("want all missing fields at once, got %v", ve.Fields)
	}
}

func TestUpdateManualInvoiceReplacesLines(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, manualLines(), ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.UpdateManualInvoice(context.Background(), res.InvoiceID, 1,
		[]LineInput{{Description: "Revised", Quantity: 1, UnitPrice: 200, VATRate: 6}}, ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	inv, _ := svc.GetInvoice(context.Background(), res.InvoiceID)
	if len(inv.Lines) != 1 || inv.Lines[0].Description != "Revised" {
		t.Fatalf("lines not replaced wholesale: %+v", inv.Lines)
	}
	if inv.TotalExcl != 200 || inv.TotalVAT != 12 || inv.VATRate != 6 {
		t.Errorf("totals after update: %v / %v rate %v", inv.TotalExcl, inv.TotalVAT, inv.VATRate)
	}
	// No orphaned lines left behind.
	var count int64
	db.Model(&models.InvoiceLine{}).Where("invoice_id = ?", res.InvoiceID).Count(&count)
	if count != 1 {
		t.Errorf("orphaned lines: %d", count)
	}
}

func TestUpdateManualInvoiceKeepsRateWhenAllLinesZero(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)

	res, err := svc.CreateManualInvoice(context.Background(), client.ID, 1, manualLines(), ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.UpdateManualInvoice(context.Background(), res.InvoiceID, 1,
		[]LineInput{{Description: "Zero", Quantity: 1, UnitPrice: 50, VATRate: 0}}, ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	inv, _ := svc.GetInvoice(context.Background(), res.InvoiceID)
	if inv.VATRate != 21 {
		t.Errorf("representative rate must survive an all-zero update: got %v", inv.VATRate)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	res, err := svc.CreateManualInvoice(ctx, client.ID, 1, manualLines(), ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateStatus(ctx, res.InvoiceID, 1, models.InvoiceStatusReady); err != nil {
		t.Fatalf("draft -> ready: %v", err)
	}
	if err := svc.UpdateStatus(ctx, res.InvoiceID, 1, models.InvoiceStatusSent); err != nil {
		t.Fatalf("ready -> sent: %v", err)
	}
	// Backwards is a conflict.
	err = svc.UpdateStatus(ctx, res.InvoiceID, 1, models.InvoiceStatusDraft)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError for sent -> draft, got %v", err)
	}
	// Cancelling is always possible before a terminal state, and terminal.
	if err := svc.UpdateStatus(ctx, res.InvoiceID, 1, models.InvoiceStatusCancelled); err != nil {
		t.Fatalf("sent -> cancelled: %v", err)
	}
	err = svc.UpdateStatus(ctx, res.InvoiceID, 1, models.InvoiceStatusReady)
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError for cancelled -> ready, got %v", err)
	}
}

func TestDeleteInvoiceRemovesLinesFirst(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	res, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, 1, ConvertOptions{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if err := svc.DeleteInvoice(ctx, res.InvoiceID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var lines, invoices int64
	db.Model(&models.InvoiceLine{}).Where("invoice_id = ?", res.InvoiceID).Count(&lines)
	db.Model(&models.Invoice{}).Count(&invoices)
	if lines != 0 || invoices != 0 {
		t.Fatalf("leftovers after delete: %d lines, %d invoices", lines, invoices)
	}
	// The quote can be converted again.
	if _, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, 1, ConvertOptions{}); err != nil {
		t.Fatalf("re-convert after delete: %v", err)
	}
}

func TestRecordPaymentFlipsToPaid(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	res, err := svc.CreateManualInvoice(ctx, client.ID, 1, manualLines(), ManualInvoiceOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.RecordPayment(ctx, res.InvoiceID, 1, 100, time.Now(), "transfer", ""); err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	inv, _ := svc.GetInvoice(ctx, res.InvoiceID)
	if inv.Status == models.InvoiceStatusPaid {
		t.Fatal("partial payment must not mark paid")
	}
	if err := svc.RecordPayment(ctx, res.InvoiceID, 1, 31, time.Now(), "transfer", "rest"); err != nil {
		t.Fatalf("final payment: %v", err)
	}
	inv, _ = svc.GetInvoice(ctx, res.InvoiceID)
	if inv.Status != models.InvoiceStatusPaid {
		t.Fatalf("want paid after covering 131.00, got %s", inv.Status)
	}
}

func TestRenderUBLRoundTrip(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	svc := NewInvoiceService(db)
	ctx := context.Background()

	res, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, 1, ConvertOptions{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	first, err := svc.RenderUBL(ctx, res.InvoiceID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	doc := string(first)
	for _, want := range []string{
		"<cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>",
		"<cbc:ID>" + res.InvoiceNumber + "</cbc:ID>",
		"ABC Prints BV",
		"XYZ Corp",
		"BE68539007547034",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %s", want)
		}
	}
	second, err := svc.RenderUBL(ctx, res.InvoiceID)
	if err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if doc != string(second) {
		t.Fatal("re-rendering the same invoice must be byte-identical")
	}
}

func TestRenderUBLMissingSupplierFields(t *testing.T) {
	db := setupTestDB(t, t.Name())
	seedSettings(t, db)
	client := seedClient(t, db)
	quote := seedQuote(t, db, client.ID)
	svc := NewInvoiceService(db)
	ctx := context.Background()
	res, err := svc.ConvertQuoteToInvoice(ctx, quote.ID, 1, ConvertOptions{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// Corrupt the persisted snapshot to simulate an incomplete supplier.
	var inv models.Invoice
	db.First(&inv, res.InvoiceID)
	inv.SupplierSnapshot = strings.Replace(inv.SupplierSnapshot, "BE0123456789", "", 1)
	db.Model(&inv).Update("supplier_snapshot", inv.SupplierSnapshot)

	_, err = svc.RenderUBL(ctx, res.InvoiceID)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if strings.Join(ve.Fields, ",") != "supplier.vatNumber" {
		t.Fatalf("want supplier.vatNumber, got %v", ve.Fields)
	}
}
