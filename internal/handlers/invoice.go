package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"printbill/internal/httpx"
	"printbill/internal/models"
	"printbill/internal/services"
	"printbill/internal/validation"
)

type InvoiceHandler struct {
	DB  *gorm.DB
	Svc *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc}
}

type invoiceLineReq struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	VATRate     float64 `json:"vat_rate"`
	UnitCode    string  `json:"unit_code"`
}

type invoiceReq struct {
	ClientID         uint             `json:"client_id"`
	IssueDate        *time.Time       `json:"issue_date"`
	DueDate          *time.Time       `json:"due_date"`
	InvoiceNumber    string           `json:"invoice_number"`
	PaymentReference string           `json:"payment_reference"`
	PaymentTerms     string           `json:"payment_terms"`
	BuyerReference   string           `json:"buyer_reference"`
	VATExempt        bool             `json:"vat_exempt"`
	VATExemptReason  string           `json:"vat_exempt_reason"`
	Lines            []invoiceLineReq `json:"lines"`
}

func (req invoiceReq) validate(requireClient bool) validation.Violations {
	v := validation.Violations{}
	if requireClient && req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if len(req.Lines) == 0 {
		v["lines"] = "required"
	}
	for _, l := range req.Lines {
		validation.Required("lines.description", l.Description, v)
		validation.Percent("lines.vat_rate", l.VATRate, v)
	}
	if req.VATExempt {
		validation.Required("vat_exempt_reason", req.VATExemptReason, v)
	}
	return v
}

func (req invoiceReq) lines() []services.LineInput {
	lines := make([]services.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.LineInput(l))
	}
	return lines
}

func (req invoiceReq) options() services.ManualInvoiceOptions {
	return services.ManualInvoiceOptions{
		IssueDate:        req.IssueDate,
		DueDate:          req.DueDate,
		InvoiceNumber:    req.InvoiceNumber,
		PaymentReference: req.PaymentReference,
		PaymentTerms:     req.PaymentTerms,
		BuyerReference:   req.BuyerReference,
		VATExempt:        req.VATExempt,
		VATExemptReason:  req.VATExemptReason,
	}
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(true); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	res, err := h.Svc.CreateManualInvoice(r.Context(), req.ClientID, actorID(r), req.lines(), req.options())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice_id": res.InvoiceID, "invoice_number": res.InvoiceNumber})
}

// Update: PUT /invoices?id=
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req invoiceReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(false); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	res, err := h.Svc.UpdateManualInvoice(r.Context(), id, actorID(r), req.lines(), req.options())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice_id": res.InvoiceID, "invoice_number": res.InvoiceNumber})
}

// Get: GET /invoices?id=
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		h.list(w, r)
		return
	}
	inv, err := h.Svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// list handles GET /invoices without an id: paginated, newest first.
func (h *InvoiceHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Model(&models.Invoice{})
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Count(&total)
	var invs []models.Invoice
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": total, "limit": limit, "offset": offset})
}

// Status: POST /invoices/status?id=
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	type statusReq struct {
		Status string `json:"status"`
	}
	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Status == "" {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", map[string]string{"status": "required"})
		return
	}
	if err := h.Svc.UpdateStatus(r.Context(), id, actorID(r), models.InvoiceStatus(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// Delete: DELETE /invoices?id=
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.DeleteInvoice(r.Context(), id, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Payment: POST /invoices/payments?id=
func (h *InvoiceHandler) Payment(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	type paymentReq struct {
		Amount float64    `json:"amount"`
		Date   *time.Time `json:"date"`
		Method string     `json:"method"`
		Note   string     `json:"note"`
	}
	var req paymentReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.PositiveFloat("amount", req.Amount, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	date := time.Time{}
	if req.Date != nil {
		date = *req.Date
	}
	if err := h.Svc.RecordPayment(r.Context(), id, actorID(r), req.Amount, date, req.Method, req.Note); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// UBL: GET /invoices/ubl?id=
func (h *InvoiceHandler) UBL(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	doc, err := h.Svc.RenderUBL(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("invoice-%d.xml", id)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
