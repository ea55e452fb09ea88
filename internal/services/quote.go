package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"printbill/internal/models"
	"printbill/internal/pricing"
)

// QuoteService prices and persists quotes. Items are replaced wholesale on
// every update; the cached totals on the quote row are recomputed each time.
type QuoteService struct {
	db       *gorm.DB
	resolver *pricing.Resolver
}

func NewQuoteService(db *gorm.DB) *QuoteService {
	return &QuoteService{db: db, resolver: pricing.NewResolver(db)}
}

// QuoteItemInput is one print job line as entered by the caller.
type QuoteItemInput struct {
	Name           string
	Quantity       float64
	WeightG        float64
	PrintHours     float64
	MaterialID     uint
	SupportCost    float64
	PostProcessing float64
	AssemblyCost   float64
	HourlyRate     float64
	Surcharge      float64
	MarginPercent  float64
}

// CustomItemInput is a free-form billable line.
type CustomItemInput struct {
	Description   string
	Quantity      float64
	Unit          string
	CostAmount    float64
	PriceAmount   float64
	MarginPercent float64
	VATPercent    float64
	Optional      bool
	Selected      bool
	GroupRef      string
}

// QuoteInput is the full quote payload. Every field is explicit; nothing is
// defaulted at use-site.
type QuoteInput struct {
	ClientID        uint
	Date            time.Time
	DiscountPercent float64
	MarginPercent   float64
	PerItemMargin   bool
	VATRate         float64
	VATExempt       bool
	VATExemptReason string
	Items           []QuoteItemInput
	CustomItems     []CustomItemInput
}

// CreateQuote prices the input and persists the quote with its items in one
// transaction.
func (s *QuoteService) CreateQuote(ctx context.Context, actorID uint, in QuoteInput) (*models.Quote, error) {
	quote, items, customs, err := s.price(in)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quote).Error; err != nil {
			return &PersistenceError{Op: "create quote", Err: err}
		}
		for i := range items {
			items[i].QuoteID = quote.ID
		}
		for i := range customs {
			customs[i].QuoteID = quote.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return &PersistenceError{Op: "create quote items", Err: err}
			}
		}
		if len(customs) > 0 {
			if err := tx.Create(&customs).Error; err != nil {
				return &PersistenceError{Op: "create custom items", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Quote", quote.ID, "create", "")
	})
	if err != nil {
		return nil, err
	}
	quote.Items = items
	quote.CustomItems = customs
	return quote, nil
}

// UpdateQuote reprices the quote and replaces all items (delete-all-then-
// reinsert) inside one transaction. Converted quotes refuse updates.
func (s *QuoteService) UpdateQuote(ctx context.Context, quoteID, actorID uint, in QuoteInput) (*models.Quote, error) {
	var existing models.Quote
	if err := s.db.WithContext(ctx).First(&existing, quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "quote", ID: quoteID}
		}
		return nil, &PersistenceError{Op: "load quote", Err: err}
	}
	if existing.Status == models.QuoteStatusConverted {
		return nil, &ConflictError{Entity: "quote", Reason: "already converted to an invoice"}
	}

	quote, items, customs, err := s.price(in)
	if err != nil {
		return nil, err
	}
	quote.ID = existing.ID
	quote.Status = existing.Status
	quote.CreatedAt = existing.CreatedAt

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", quoteID).Delete(&models.QuoteItem{}).Error; err != nil {
			return &PersistenceError{Op: "delete quote items", Err: err}
		}
		if err := tx.Where("quote_id = ?", quoteID).Delete(&models.CustomItem{}).Error; err != nil {
			return &PersistenceError{Op: "delete custom items", Err: err}
		}
		if err := tx.Save(quote).Error; err != nil {
			return &PersistenceError{Op: "update quote", Err: err}
		}
		for i := range items {
			items[i].QuoteID = quote.ID
		}
		for i := range customs {
			customs[i].QuoteID = quote.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return &PersistenceError{Op: "recreate quote items", Err: err}
			}
		}
		if len(customs) > 0 {
			if err := tx.Create(&customs).Error; err != nil {
				return &PersistenceError{Op: "recreate custom items", Err: err}
			}
		}
		return writeAudit(tx, actorID, "Quote", quote.ID, "update", "")
	})
	if err != nil {
		return nil, err
	}
	quote.Items = items
	quote.CustomItems = customs
	return quote, nil
}

// GetQuote loads a quote with its items and client.
func (s *QuoteService) GetQuote(ctx context.Context, quoteID uint) (*models.Quote, error) {
	var quote models.Quote
	err := s.db.WithContext(ctx).
		Preload("Items").Preload("CustomItems").Preload("Client").
		First(&quote, quoteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "quote", ID: quoteID}
		}
		return nil, &PersistenceError{Op: "load quote", Err: err}
	}
	return &quote, nil
}

// price computes per-item unit prices and the quote totals from the input.
func (s *QuoteService) price(in QuoteInput) (*models.Quote, []models.QuoteItem, []models.CustomItem, error) {
	if in.ClientID == 0 {
		return nil, nil, nil, &ValidationError{Fields: []string{"clientId"}}
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var (
		items    []models.QuoteItem
		customs  []models.CustomItem
		netTotal float64
		vatTotal float64
	)

	for i, it := range in.Items {
		var mat models.Material
		if err := s.db.First(&mat, it.MaterialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, nil, &NotFoundError{Entity: "material", ID: it.MaterialID}
			}
			return nil, nil, nil, &PersistenceError{Op: "load material", Err: err}
		}
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}

		rule, err := s.resolver.ForMaterial(mat.ID, in.ClientID, qty, date)
		if err != nil {
			return nil, nil, nil, &PersistenceError{Op: "resolve price rule", Err: err}
		}

		materialUnit := mat.UnitPrice
		margin := mat.MarginPercent
		if in.PerItemMargin && it.MarginPercent > 0 {
			margin = it.MarginPercent
		} else if !in.PerItemMargin && in.MarginPercent > 0 {
			margin = in.MarginPercent
		}
		if rule != nil {
			if rule.PricePerUnit != nil {
				materialUnit = *rule.PricePerUnit
			}
			if rule.MarginPercent != nil {
				margin = *rule.MarginPercent
			}
		}

		base := it.WeightG*materialUnit +
			it.PrintHours*it.HourlyRate +
			it.SupportCost + it.PostProcessing + it.AssemblyCost
		unitPrice := round2(base*(1+margin/100) + it.Surcharge)
		lineTotal := lineAmount(qty, unitPrice)

		items = append(items, models.QuoteItem{
			Name:           it.Name,
			Quantity:       qty,
			WeightG:        it.WeightG,
			PrintHours:     it.PrintHours,
			MaterialID:     it.MaterialID,
			SupportCost:    it.SupportCost,
			PostProcessing: it.PostProcessing,
			AssemblyCost:   it.AssemblyCost,
			HourlyRate:     it.HourlyRate,
			Surcharge:      it.Surcharge,
			MarginPercent:  it.MarginPercent,
			UnitPrice:      unitPrice,
			LineTotal:      lineTotal,
			Position:       i,
		})
		netTotal += lineTotal
		if !in.VATExempt {
			vatTotal += vatAmount(lineTotal, in.VATRate)
		}
	}

	for _, ci := range in.CustomItems {
		price := ci.PriceAmount
		if price == 0 && ci.CostAmount > 0 {
			price = round2(ci.CostAmount * (1 + ci.MarginPercent/100))
		}
		qty := ci.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := ci.Unit
		if unit == "" {
			unit = "pc"
		}
		customs = append(customs, models.CustomItem{
			Description:   ci.Description,
			Quantity:      qty,
			Unit:          unit,
			CostAmount:    ci.CostAmount,
			PriceAmount:   price,
			MarginPercent: ci.MarginPercent,
			VATPercent:    ci.VATPercent,
			Optional:      ci.Optional,
			Selected:      ci.Selected,
			GroupRef:      ci.GroupRef,
		})
		if ci.Optional && !ci.Selected {
			continue // offered alternative, not billed
		}
		total := lineAmount(qty, price)
		netTotal += total
		if !in.VATExempt {
			rate := ci.VATPercent
			if rate == 0 {
				rate = in.VATRate
			}
			vatTotal += vatAmount(total, rate)
		}
	}

	if in.DiscountPercent > 0 {
		factor := 1 - in.DiscountPercent/100
		netTotal = round2(netTotal * factor)
		vatTotal = round2(vatTotal * factor)
	} else {
		netTotal = round2(netTotal)
		vatTotal = round2(vatTotal)
	}
	if in.VATExempt {
		vatTotal = 0
	}

	quote := &models.Quote{
		ClientID:        in.ClientID,
		Date:            date,
		Status:          models.QuoteStatusDraft,
		DiscountPercent: in.DiscountPercent,
		MarginPercent:   in.MarginPercent,
		PerItemMargin:   in.PerItemMargin,
		VATRate:         in.VATRate,
		VATExempt:       in.VATExempt,
		VATExemptReason: in.VATExemptReason,
		TotalNet:        netTotal,
		TotalVAT:        vatTotal,
		TotalGross:      round2(netTotal + vatTotal),
	}
	return quote, items, customs, nil
}

// MarkSent flips a draft quote to sent. Kept tiny on purpose; richer quote
// state handling lives with the UI layer.
func (s *QuoteService) MarkSent(ctx context.Context, quoteID, actorID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND status = ?", quoteID, models.QuoteStatusDraft).
		Update("status", models.QuoteStatusSent)
	if res.Error != nil {
		return &PersistenceError{Op: "mark quote sent", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &ConflictError{Entity: "quote", Reason: fmt.Sprintf("quote %d is not in draft", quoteID)}
	}
	return nil
}
