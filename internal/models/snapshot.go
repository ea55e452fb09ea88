package models

// PartySnapshot is the point-in-time copy of supplier or customer identity
// embedded in an invoice. IBAN/BIC are only populated on the supplier side.
type PartySnapshot struct {
	Name         string `json:"name"`
	Street       string `json:"street"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	CountryCode  string `json:"country_code"`
	VATNumber    string `json:"vat_number,omitempty"`
	PeppolID     string `json:"peppol_id,omitempty"`
	PeppolScheme string `json:"peppol_scheme,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	IBAN         string `json:"iban,omitempty"`
	BIC          string `json:"bic,omitempty"`
}
