package services

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"printbill/internal/models"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(name, "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Client{}, &models.CompanySettings{}, &models.Material{},
		&models.Quote{}, &models.QuoteItem{}, &models.CustomItem{},
		&models.PriceRule{}, &models.Invoice{}, &models.InvoiceLine{},
		&models.Payment{}, &models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedSettings(t *testing.T, db *gorm.DB) *models.CompanySettings {
	t.Helper()
	s := models.CompanySettings{
		CompanyName:    "ABC Prints BV",
		Street:         "Supplier Street 123",
		PostalCode:     "1234",
		City:           "Supplier City",
		CountryCode:    "BE",
		VATNumber:      "BE0123456789",
		PeppolID:       "0123456789",
		PeppolScheme:   "0208",
		IBAN:           "BE68539007547034",
		BIC:            "GEBABEBB",
		DefaultDueDays: 14,
		DefaultVATRate: 21,
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return &s
}

func seedClient(t *testing.T, db *gorm.DB) *models.Client {
	t.Helper()
	c := models.Client{
		Name:        "XYZ Corp",
		Email:       "billing@xyz.example",
		Street:      "Customer Avenue 789",
		PostalCode:  "6789",
		City:        "Customer Town",
		CountryCode: "BE",
		VATNumber:   "BE9876543210",
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return &c
}

func seedMaterial(t *testing.T, db *gorm.DB) *models.Material {
	t.Helper()
	m := models.Material{Name: "PETG", UnitPrice: 0.10, UnitCost: 0.04, MarginPercent: 20}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	return &m
}

// seedQuote creates a quote with cached totals 100 / 21 / 121 and two priced
// items, the way the quote engine would have left it.
func seedQuote(t *testing.T, db *gorm.DB, clientID uint) *models.Quote {
	t.Helper()
	q := models.Quote{
		ClientID:   clientID,
		Status:     models.QuoteStatusAccepted,
		VATRate:    21,
		TotalNet:   100,
		TotalVAT:   21,
		TotalGross: 121,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	items := []models.QuoteItem{
		{QuoteID: q.ID, Name: "Bracket", Quantity: 4, UnitPrice: 15, LineTotal: 60, Position: 0},
		{QuoteID: q.ID, Name: "Housing", Quantity: 2, UnitPrice: 0, LineTotal: 40, Position: 1}, // legacy: only total stored
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("seed quote items: %v", err)
	}
	return &q
}
