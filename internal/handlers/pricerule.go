package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"printbill/internal/httpx"
	"printbill/internal/models"
	"printbill/internal/validation"
)

type PriceRuleHandler struct {
	DB *gorm.DB
}

func NewPriceRuleHandler(db *gorm.DB) *PriceRuleHandler {
	return &PriceRuleHandler{DB: db}
}

// Create: POST /price-rules
func (h *PriceRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	type createReq struct {
		MaterialID    uint       `json:"material_id"`
		ClientID      *uint      `json:"client_id"`
		Segment       string     `json:"segment"`
		MinQty        float64    `json:"min_qty"`
		PricePerUnit  *float64   `json:"price_per_unit"`
		MarginPercent *float64   `json:"margin_percent"`
		ValidFrom     *time.Time `json:"valid_from"`
		ValidTo       *time.Time `json:"valid_to"`
	}
	var req createReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	if req.MaterialID == 0 {
		v["material_id"] = "required"
	}
	validation.NonNegativeFloat("min_qty", req.MinQty, v)
	validation.OneOfFloat(v, map[string]*float64{
		"price_per_unit": req.PricePerUnit,
		"margin_percent": req.MarginPercent,
	})
	if req.PricePerUnit != nil {
		validation.PositiveFloat("price_per_unit", *req.PricePerUnit, v)
	}
	if req.MarginPercent != nil {
		validation.Percent("margin_percent", *req.MarginPercent, v)
	}
	if req.ValidFrom != nil && req.ValidTo != nil && req.ValidTo.Before(*req.ValidFrom) {
		v["valid_to"] = "before_valid_from"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	var mat models.Material
	if err := h.DB.First(&mat, req.MaterialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"entity": "material", "id": req.MaterialID})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if req.ClientID != nil {
		var client models.Client
		if err := h.DB.First(&client, *req.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"entity": "client", "id": *req.ClientID})
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
	}

	rule := models.PriceRule{
		MaterialID:    req.MaterialID,
		ClientID:      req.ClientID,
		Segment:       req.Segment,
		MinQty:        req.MinQty,
		PricePerUnit:  req.PricePerUnit,
		MarginPercent: req.MarginPercent,
		ValidFrom:     req.ValidFrom,
		ValidTo:       req.ValidTo,
		Active:        true,
	}
	if err := h.DB.Create(&rule).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_rule", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, rule)
}

// List: GET /price-rules?material_id=&client_id=
func (h *PriceRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Model(&models.PriceRule{})
	if v := r.URL.Query().Get("material_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("material_id = ?", n)
		}
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("client_id = ?", n)
		}
	}
	if r.URL.Query().Get("active") == "1" {
		dbq = dbq.Where("active = ?", true)
	}
	var rules []models.PriceRule
	if err := dbq.Order("material_id, min_qty").Find(&rules).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_rules", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rules, "total": len(rules)})
}

// Deactivate: POST /price-rules/deactivate?id=
// Rules are never deleted so historical quotes stay explainable.
func (h *PriceRuleHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Model(&models.PriceRule{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_rule", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"entity": "price_rule", "id": id})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
