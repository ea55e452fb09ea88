// Package snapshot assembles the immutable supplier/customer records embedded
// in an invoice at creation time.
package snapshot

import (
	"regexp"
	"strings"

	"printbill/internal/models"
)

// Matches "<leading text> <4+ digit postal code> <city>", the common layout of
// legacy one-line Belgian/Dutch addresses ("Hoogstraat 12, 9000 Gent").
var postalCityRe = regexp.MustCompile(`^(.*?)[,\s]*\b(\d{4,})\b[,\s]+(.+)$`)

// FromClient builds the customer snapshot from a client record.
func FromClient(c *models.Client) models.PartySnapshot {
	snap := models.PartySnapshot{
		Name:         c.Name,
		Street:       c.Street,
		PostalCode:   c.PostalCode,
		City:         c.City,
		CountryCode:  c.CountryCode,
		VATNumber:    c.VATNumber,
		PeppolID:     c.PeppolID,
		PeppolScheme: c.PeppolScheme,
		Email:        c.Email,
		Phone:        c.Phone,
	}
	fillFromFreeText(&snap, c.Address)
	return snap
}

// FromSettings builds the supplier snapshot from the company settings row.
// Only the supplier side carries banking details.
func FromSettings(s *models.CompanySettings) models.PartySnapshot {
	snap := models.PartySnapshot{
		Name:         s.CompanyName,
		Street:       s.Street,
		PostalCode:   s.PostalCode,
		City:         s.City,
		CountryCode:  s.CountryCode,
		VATNumber:    s.VATNumber,
		PeppolID:     s.PeppolID,
		PeppolScheme: s.PeppolScheme,
		Email:        s.Email,
		Phone:        s.Phone,
		IBAN:         s.IBAN,
		BIC:          s.BIC,
	}
	fillFromFreeText(&snap, s.Address)
	return snap
}

// fillFromFreeText is the best-effort fallback for records that only carry a
// legacy one-line address. It never overwrites structured fields.
func fillFromFreeText(snap *models.PartySnapshot, freeText string) {
	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		return
	}
	if snap.Street == "" {
		snap.Street = freeText
	}
	if snap.PostalCode != "" && snap.City != "" {
		return
	}
	m := postalCityRe.FindStringSubmatch(freeText)
	if m == nil {
		return
	}
	if snap.PostalCode == "" {
		snap.PostalCode = m[2]
	}
	if snap.City == "" {
		snap.City = strings.TrimSpace(m[3])
	}
}

// Missing returns the mandatory fields still absent from the snapshot, in a
// stable order so validation messages are deterministic. forUBL additionally
// requires the Peppol participant id, and for the supplier the IBAN.
func Missing(snap models.PartySnapshot, forUBL, supplier bool) []string {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("name", snap.Name)
	check("vatNumber", snap.VATNumber)
	check("street", snap.Street)
	check("postalCode", snap.PostalCode)
	check("city", snap.City)
	check("countryCode", snap.CountryCode)
	if forUBL {
		check("peppolId", snap.PeppolID)
		if supplier {
			check("iban", snap.IBAN)
		}
	}
	return missing
}

// MissingAddress checks only the four postal fields every serialized snapshot
// must have. Used for the customer side of manual invoices.
func MissingAddress(snap models.PartySnapshot) []string {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("street", snap.Street)
	check("postalCode", snap.PostalCode)
	check("city", snap.City)
	check("countryCode", snap.CountryCode)
	return missing
}
