// Package ubl serializes persisted invoices into Peppol BIS Billing 3.0 UBL
// documents.
//
// Profile: https://docs.peppol.eu/poacc/billing/3.0/
// Syntax tree: https://docs.peppol.eu/poacc/billing/3.0/syntax/ubl-invoice/tree/
package ubl

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"printbill/internal/models"
	"printbill/internal/snapshot"
	"printbill/internal/tax"
)

// Fixed EN 16931 / Peppol BIS Billing 3.0 identifiers.
const (
	customizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	profileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	invoiceTypeCode = "380" // commercial invoice
	paymentMeans    = "31"  // credit transfer
)

// MissingFieldsError lists every mandatory snapshot field absent from the
// invoice, so one round-trip fixes them all. No partial document is emitted.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "ubl: missing mandatory fields: " + strings.Join(e.Fields, ", ")
}

// BuildInvoice renders the invoice with its lines and both snapshots as a
// UTF-8 UBL document. Identical input produces byte-identical output.
func BuildInvoice(inv *models.Invoice, lines []models.InvoiceLine, supplier, customer models.PartySnapshot) ([]byte, error) {
	var fields []string
	for _, f := range snapshot.Missing(supplier, true, true) {
		fields = append(fields, "supplier."+f)
	}
	for _, f := range snapshot.MissingAddress(customer) {
		fields = append(fields, "customer."+f)
	}
	if len(fields) > 0 {
		return nil, &MissingFieldsError{Fields: fields}
	}

	currency := inv.Currency
	if currency == "" {
		currency = "EUR"
	}
	amount := func(v float64) xmlAmount {
		return xmlAmount{Value: money(v), CurrencyID: currency}
	}

	doc := &xmlInvoice{
		Xmlns:            "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		Cac:              "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2",
		Cbc:              "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2",
		CustomizationID:  customizationID,
		ProfileID:        profileID,
		ID:               inv.Number,
		IssueDate:        inv.IssueDate.Format("2006-01-02"),
		InvoiceTypeCode:  invoiceTypeCode,
		DocumentCurrency: currency,
		BuyerReference:   inv.BuyerReference,
	}
	if !inv.DueDate.IsZero() {
		doc.DueDate = inv.DueDate.Format("2006-01-02")
	}

	doc.SupplierParty = xmlSupplierParty{Party: party(supplier)}
	doc.CustomerParty = xmlCustomerParty{Party: party(customer)}

	doc.PaymentMeans = xmlPaymentMeans{
		PaymentMeansCode: paymentMeans,
		PaymentID:        inv.PaymentReference,
		PayeeFinancialAccount: xmlFinancialAccount{
			ID: supplier.IBAN,
		},
	}
	if supplier.BIC != "" {
		doc.PaymentMeans.PayeeFinancialAccount.FinancialInstitutionBranch =
			&xmlFinancialInstitutionBranch{ID: supplier.BIC}
	}
	if inv.PaymentTerms != "" {
		doc.PaymentTerms = &xmlPaymentTerms{Note: inv.PaymentTerms}
	}

	docRate := inv.VATRate
	if inv.VATExempt {
		docRate = 0
	}
	docCategory := xmlTaxCategory{
		ID:        tax.Category(inv.VATRate, inv.VATExempt),
		Percent:   percent(docRate),
		TaxScheme: xmlTaxScheme{ID: "VAT"},
	}
	if inv.VATExempt && inv.VATExemptReason != "" {
		docCategory.TaxExemptionReason = inv.VATExemptReason
	}
	doc.TaxTotal = xmlTaxTotal{
		TaxAmount: amount(inv.TotalVAT),
		TaxSubtotal: []xmlTaxSubtotal{{
			TaxableAmount: amount(inv.TotalExcl),
			TaxAmount:     amount(inv.TotalVAT),
			TaxCategory:   docCategory,
		}},
	}

	doc.LegalMonetaryTotal = xmlMonetaryTotal{
		LineExtensionAmount: amount(inv.TotalExcl),
		TaxExclusiveAmount:  amount(inv.TotalExcl),
		TaxInclusiveAmount:  amount(inv.TotalIncl),
		PayableAmount:       amount(inv.TotalIncl),
	}

	for i, line := range lines {
		rate := line.VATRate
		category := line.VATCategoryCode
		if category == "" {
			// Line without its own treatment mirrors the document.
			rate = inv.VATRate
			category = tax.Category(inv.VATRate, inv.VATExempt)
		}
		if inv.VATExempt {
			rate = 0
		}
		unitCode := line.UnitCode
		if unitCode == "" {
			unitCode = models.DefaultUnitCode
		}
		doc.InvoiceLines = append(doc.InvoiceLines, xmlInvoiceLine{
			ID:                  strconv.Itoa(i + 1),
			InvoicedQuantity:    xmlQuantity{Value: quantity(line.Quantity), UnitCode: unitCode},
			LineExtensionAmount: amount(line.LineExtensionAmount),
			Item: xmlItem{
				Name: line.Description,
				ClassifiedTaxCategory: xmlTaxCategory{
					ID:        category,
					Percent:   percent(rate),
					TaxScheme: xmlTaxScheme{ID: "VAT"},
				},
			},
			Price: xmlPrice{
				PriceAmount: xmlAmount{Value: unitPrice(line.UnitPrice), CurrencyID: currency},
			},
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ubl: xml marshal failed: %w", err)
	}
	return []byte(xml.Header + string(output)), nil
}

func party(snap models.PartySnapshot) xmlParty {
	p := xmlParty{
		PartyName: snap.Name,
		PostalAddress: xmlPostalAddress{
			StreetName: snap.Street,
			CityName:   snap.City,
			PostalZone: snap.PostalCode,
			Country:    xmlCountry{IdentificationCode: snap.CountryCode},
		},
		RegistrationName: snap.Name,
	}
	if snap.PeppolID != "" {
		p.EndpointID = endpointID(snap)
	}
	if snap.VATNumber != "" {
		p.PartyTaxScheme = &xmlPartyTaxScheme{
			CompanyID: snap.VATNumber,
			TaxScheme: xmlTaxScheme{ID: "VAT"},
		}
	}
	return p
}

// endpointID prefers the stored scheme; a combined "scheme:value" participant
// id is split as fallback.
func endpointID(snap models.PartySnapshot) *xmlEndpointID {
	if snap.PeppolScheme != "" {
		return &xmlEndpointID{Value: snap.PeppolID, SchemeID: snap.PeppolScheme}
	}
	if i := strings.IndexByte(snap.PeppolID, ':'); i > 0 {
		return &xmlEndpointID{Value: snap.PeppolID[i+1:], SchemeID: snap.PeppolID[:i]}
	}
	return &xmlEndpointID{Value: snap.PeppolID}
}

// Amount formatting: fixed decimal point, no thousands separator. Monetary
// amounts use 2 decimals, quantities and unit prices 4.
func money(v float64) string     { return decimal.NewFromFloat(v).StringFixed(2) }
func quantity(v float64) string  { return decimal.NewFromFloat(v).StringFixed(4) }
func unitPrice(v float64) string { return decimal.NewFromFloat(v).StringFixed(4) }

// percent renders the canonical decimal form ("21", "6.5").
func percent(v float64) string { return decimal.NewFromFloat(v).String() }
