package server

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"printbill/internal/handlers"
	"printbill/internal/httpx"
	"printbill/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, werr := w.Write([]byte(`{"status":"degraded"}`)); werr != nil {
				_ = werr
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	quoteSvc := services.NewQuoteService(db)
	invoiceSvc := services.NewInvoiceService(db)

	// Price rule endpoints
	pr := handlers.NewPriceRuleHandler(db)
	mux.HandleFunc("/price-rules", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			pr.List(w, r)
		case http.MethodPost:
			pr.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/price-rules/deactivate", requirePost(pr.Deactivate))

	// Quote endpoints
	qh := handlers.NewQuoteHandler(quoteSvc, invoiceSvc)
	mux.HandleFunc("/quotes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			qh.Get(w, r)
		case http.MethodPost:
			qh.Create(w, r)
		case http.MethodPut:
			qh.Update(w, r)
		default:
			w.Header().Set("Allow", "GET,POST,PUT")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/quotes/send", requirePost(qh.Send))
	mux.HandleFunc("/quotes/convert", requirePost(qh.Convert))

	// Invoice endpoints
	ih := handlers.NewInvoiceHandler(db, invoiceSvc)
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.Get(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		case http.MethodPut:
			ih.Update(w, r)
		case http.MethodDelete:
			ih.Delete(w, r)
		default:
			w.Header().Set("Allow", "GET,POST,PUT,DELETE")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("/invoices/status", requirePost(ih.Status))
	mux.HandleFunc("/invoices/payments", requirePost(ih.Payment))
	mux.HandleFunc("/invoices/ubl", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		ih.UBL(w, r)
	})

	// Root placeholder
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, werr := w.Write([]byte("Printbill API")); werr != nil {
			_ = werr
		}
	})
	//revive:enable:unused-parameter

	return withRecover(withLogging(mux))
}

func requirePost(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	}
}

// Simple middleware logging & recovery kept private to this package to avoid
// duplication with main.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		_ = start // placeholder if switched to structured logging later
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
