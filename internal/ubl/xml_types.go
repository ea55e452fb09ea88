package ubl

import "encoding/xml"

type xmlInvoice struct {
	XMLName          xml.Name `xml:"Invoice"`
	Xmlns            string   `xml:"xmlns,attr"`
	Cac              string   `xml:"xmlns:cac,attr"`
	Cbc              string   `xml:"xmlns:cbc,attr"`
	CustomizationID  string   `xml:"cbc:CustomizationID"`
	ProfileID        string   `xml:"cbc:ProfileID"`
	ID               string   `xml:"cbc:ID"`
	IssueDate        string   `xml:"cbc:IssueDate"`
	DueDate          string   `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode  string   `xml:"cbc:InvoiceTypeCode"`
	DocumentCurrency string   `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference   string   `xml:"cbc:BuyerReference,omitempty"`

	SupplierParty      xmlSupplierParty `xml:"cac:AccountingSupplierParty"`
	CustomerParty      xmlCustomerParty `xml:"cac:AccountingCustomerParty"`
	PaymentMeans       xmlPaymentMeans  `xml:"cac:PaymentMeans"`
	PaymentTerms       *xmlPaymentTerms `xml:"cac:PaymentTerms,omitempty"`
	TaxTotal           xmlTaxTotal      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal xmlMonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines       []xmlInvoiceLine `xml:"cac:InvoiceLine"`
}

type xmlSupplierParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlCustomerParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlEndpointID struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr,omitempty"`
}

type xmlParty struct {
	EndpointID       *xmlEndpointID     `xml:"cbc:EndpointID,omitempty"`
	PartyName        string             `xml:"cac:PartyName>cbc:Name"`
	PostalAddress    xmlPostalAddress   `xml:"cac:PostalAddress"`
	PartyTaxScheme   *xmlPartyTaxScheme `xml:"cac:PartyTaxScheme,omitempty"`
	RegistrationName string             `xml:"cac:PartyLegalEntity>cbc:RegistrationName"`
}

type xmlPostalAddress struct {
	StreetName string     `xml:"cbc:StreetName,omitempty"`
	CityName   string     `xml:"cbc:CityName,omitempty"`
	PostalZone string     `xml:"cbc:PostalZone,omitempty"`
	Country    xmlCountry `xml:"cac:Country"`
}

type xmlCountry struct {
	IdentificationCode string `xml:"cbc:IdentificationCode,omitempty"`
}

type xmlPartyTaxScheme struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type xmlPaymentMeans struct {
	PaymentMeansCode      string              `xml:"cbc:PaymentMeansCode"`
	PaymentID             string              `xml:"cbc:PaymentID,omitempty"`
	PayeeFinancialAccount xmlFinancialAccount `xml:"cac:PayeeFinancialAccount"`
}

type xmlFinancialAccount struct {
	ID                         string                         `xml:"cbc:ID"`
	FinancialInstitutionBranch *xmlFinancialInstitutionBranch `xml:"cac:FinancialInstitutionBranch,omitempty"`
}

type xmlFinancialInstitutionBranch struct {
	ID string `xml:"cbc:ID"`
}

type xmlPaymentTerms struct {
	Note string `xml:"cbc:Note"`
}

type xmlTaxTotal struct {
	TaxAmount   xmlAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []xmlTaxSubtotal `xml:"cac:TaxSubtotal,omitempty"`
}

type xmlTaxSubtotal struct {
	TaxableAmount xmlAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     xmlAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlTaxCategory struct {
	ID                 string       `xml:"cbc:ID"`
	Percent            string       `xml:"cbc:Percent"`
	TaxExemptionReason string       `xml:"cbc:TaxExemptionReason,omitempty"`
	TaxScheme          xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlMonetaryTotal struct {
	LineExtensionAmount xmlAmount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  xmlAmount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  xmlAmount `xml:"cbc:TaxInclusiveAmount"`
	PayableAmount       xmlAmount `xml:"cbc:PayableAmount"`
}

// Amounts carry pre-formatted decimal strings so output is byte-identical for
// identical input.
type xmlAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

// Unit codes from UN/ECE Recommendation 20.
type xmlQuantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type xmlInvoiceLine struct {
	ID                  string      `xml:"cbc:ID"`
	InvoicedQuantity    xmlQuantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount xmlAmount   `xml:"cbc:LineExtensionAmount"`
	Item                xmlItem     `xml:"cac:Item"`
	Price               xmlPrice    `xml:"cac:Price"`
}

type xmlItem struct {
	Name                  string         `xml:"cbc:Name"`
	ClassifiedTaxCategory xmlTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type xmlPrice struct {
	PriceAmount xmlAmount `xml:"cbc:PriceAmount"`
}
