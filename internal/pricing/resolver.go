// Package pricing selects the single applicable price rule for a
// (material, client, quantity, date) tuple. Absence of a match is a valid
// outcome: the caller falls back to catalog price and margin.
package pricing

import (
	"time"

	"gorm.io/gorm"

	"printbill/internal/models"
)

// Resolve picks at most one rule from the candidate set. Candidates are
// expected to belong to one material; inactive rules and rules outside their
// validity window are skipped here as well, so callers may pass unfiltered
// sets (tests do).
//
// Client-scoped rules beat general rules; rules scoped to a different client
// are discarded. Within the winning tier the rule with the largest MinQty not
// exceeding qty applies. Equal thresholds are broken in favour of the newest
// rule (CreatedAt, then ID).
func Resolve(rules []models.PriceRule, clientID uint, qty float64, at time.Time) *models.PriceRule {
	var clientTier, generalTier []models.PriceRule
	for _, r := range rules {
		if !r.Active || !r.ValidAt(at) {
			continue
		}
		switch {
		case r.ClientID == nil:
			generalTier = append(generalTier, r)
		case *r.ClientID == clientID:
			clientTier = append(clientTier, r)
		}
	}
	if best := bestFor(clientTier, qty); best != nil {
		return best
	}
	return bestFor(generalTier, qty)
}

func bestFor(tier []models.PriceRule, qty float64) *models.PriceRule {
	var best *models.PriceRule
	for i := range tier {
		r := &tier[i]
		if r.MinQty > qty {
			continue
		}
		if best == nil || r.MinQty > best.MinQty || (r.MinQty == best.MinQty && newer(r, best)) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func newer(a, b *models.PriceRule) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Resolver loads rule candidates from the store and applies Resolve.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver { return &Resolver{db: db} }

// ForMaterial resolves the applicable rule for one material. clientID may be
// zero for anonymous/no-client pricing, in which case only general rules can
// match.
func (r *Resolver) ForMaterial(materialID, clientID uint, qty float64, at time.Time) (*models.PriceRule, error) {
	var rules []models.PriceRule
	if err := r.db.Where("material_id = ? AND active = ?", materialID, true).Find(&rules).Error; err != nil {
		return nil, err
	}
	return Resolve(rules, clientID, qty, at), nil
}
