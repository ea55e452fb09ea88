package handlers

import (
	"net/http"
	"time"

	"printbill/internal/httpx"
	"printbill/internal/services"
	"printbill/internal/validation"
)

type QuoteHandler struct {
	Quotes   *services.QuoteService
	Invoices *services.InvoiceService
}

func NewQuoteHandler(quotes *services.QuoteService, invoices *services.InvoiceService) *QuoteHandler {
	return &QuoteHandler{Quotes: quotes, Invoices: invoices}
}

type quoteItemReq struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	WeightG        float64 `json:"weight_g"`
	PrintHours     float64 `json:"print_hours"`
	MaterialID     uint    `json:"material_id"`
	SupportCost    float64 `json:"support_cost"`
	PostProcessing float64 `json:"post_processing"`
	AssemblyCost   float64 `json:"assembly_cost"`
	HourlyRate     float64 `json:"hourly_rate"`
	Surcharge      float64 `json:"surcharge"`
	MarginPercent  float64 `json:"margin_percent"`
}

type customItemReq struct {
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	CostAmount    float64 `json:"cost_amount"`
	PriceAmount   float64 `json:"price_amount"`
	MarginPercent float64 `json:"margin_percent"`
	VATPercent    float64 `json:"vat_percent"`
	Optional      bool    `json:"optional"`
	Selected      bool    `json:"selected"`
	GroupRef      string  `json:"group_ref"`
}

type quoteReq struct {
	ClientID        uint            `json:"client_id"`
	Date            *time.Time      `json:"date"`
	DiscountPercent float64         `json:"discount_percent"`
	MarginPercent   float64         `json:"margin_percent"`
	PerItemMargin   bool            `json:"per_item_margin"`
	VATRate         float64         `json:"vat_rate"`
	VATExempt       bool            `json:"vat_exempt"`
	VATExemptReason string          `json:"vat_exempt_reason"`
	Items           []quoteItemReq  `json:"items"`
	CustomItems     []customItemReq `json:"custom_items"`
}

func (req quoteReq) validate() validation.Violations {
	v := validation.Violations{}
	if req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if len(req.Items) == 0 && len(req.CustomItems) == 0 {
		v["items"] = "required"
	}
	validation.Percent("vat_rate", req.VATRate, v)
	validation.Percent("discount_percent", req.DiscountPercent, v)
	for _, it := range req.Items {
		if it.MaterialID == 0 {
			v["items.material_id"] = "required"
		}
		validation.NonNegativeFloat("items.weight_g", it.WeightG, v)
		validation.NonNegativeFloat("items.print_hours", it.PrintHours, v)
	}
	for _, ci := range req.CustomItems {
		validation.Required("custom_items.description", ci.Description, v)
	}
	return v
}

func (req quoteReq) toInput() services.QuoteInput {
	in := services.QuoteInput{
		ClientID:        req.ClientID,
		DiscountPercent: req.DiscountPercent,
		MarginPercent:   req.MarginPercent,
		PerItemMargin:   req.PerItemMargin,
		VATRate:         req.VATRate,
		VATExempt:       req.VATExempt,
		VATExemptReason: req.VATExemptReason,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.QuoteItemInput(it))
	}
	for _, ci := range req.CustomItems {
		in.CustomItems = append(in.CustomItems, services.CustomItemInput(ci))
	}
	return in
}

// Create: POST /quotes
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	quote, err := h.Quotes.CreateQuote(r.Context(), actorID(r), req.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

// Update: PUT /quotes?id=
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req quoteReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	quote, err := h.Quotes.UpdateQuote(r.Context(), id, actorID(r), req.toInput())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Get: GET /quotes?id=
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	quote, err := h.Quotes.GetQuote(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Send: POST /quotes/send?id=
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Quotes.MarkSent(r.Context(), id, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Convert: POST /quotes/convert?id=
func (h *QuoteHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	type convertReq struct {
		IssueDate        *time.Time `json:"issue_date"`
		DueDate          *time.Time `json:"due_date"`
		InvoiceNumber    string     `json:"invoice_number"`
		PaymentReference string     `json:"payment_reference"`
		PaymentTerms     string     `json:"payment_terms"`
		BuyerReference   string     `json:"buyer_reference"`
	}
	var req convertReq
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	}
	res, err := h.Invoices.ConvertQuoteToInvoice(r.Context(), id, actorID(r), services.ConvertOptions{
		IssueDate:        req.IssueDate,
		DueDate:          req.DueDate,
		InvoiceNumber:    req.InvoiceNumber,
		PaymentReference: req.PaymentReference,
		PaymentTerms:     req.PaymentTerms,
		BuyerReference:   req.BuyerReference,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice_id": res.InvoiceID, "invoice_number": res.InvoiceNumber})
}
