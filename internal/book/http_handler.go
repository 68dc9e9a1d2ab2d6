package book

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookresale/internal/httpx"

	"github.com/shopspring/decimal"
)

type HTTPHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewHTTPHandler(service *Service, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{service: service, logger: logger.With("component", "book_http")}
}

type createRequest struct {
	ISBN string `json:"isbn" validate:"notblank,max=32"`
}

type updatePricesRequest struct {
	SellPrice         *decimal.Decimal `json:"sell_price" validate:"omitempty,gte=0"`
	HighestPrice      *decimal.Decimal `json:"highest_price" validate:"omitempty,gte=0"`
	HighPayoutCompany *string          `json:"high_payout_company" validate:"omitempty,max=100"`
	LastPriceCheck    *time.Time       `json:"last_price_check"`
}

func (req updatePricesRequest) empty() bool {
	return req.SellPrice == nil && req.HighestPrice == nil && req.HighPayoutCompany == nil && req.LastPriceCheck == nil
}

type checkResponse struct {
	ISBN   string `json:"isbn"`
	Exists bool   `json:"exists"`
}

// Create handles POST /v1/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if errs := httpx.ValidateStruct(req); len(errs) > 0 {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", httpx.Details(errs))
		return
	}

	b, err := h.service.Create(r.Context(), req.ISBN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreatedWithRequest(r, w, b)
}

// List handles GET /v1/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, books, map[string]interface{}{"total": len(books)})
}

// Check handles GET /v1/books/check?isbn=
func (h *HTTPHandler) Check(w http.ResponseWriter, r *http.Request) {
	isbn := r.URL.Query().Get("isbn")
	exists, err := h.service.Exists(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, checkResponse{ISBN: isbn, Exists: exists}, nil)
}

// Get handles GET /v1/books/{isbn}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	isbn, ok := pathISBN(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, b, nil)
}

// UpdatePrices handles PATCH /v1/books/{isbn}
func (h *HTTPHandler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	isbn, ok := pathISBN(w, r)
	if !ok {
		return
	}

	var req updatePricesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if errs := httpx.ValidateStruct(req); len(errs) > 0 {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", httpx.Details(errs))
		return
	}
	if req.empty() {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "No price fields to update", nil)
		return
	}

	b, err := h.service.UpdatePrices(r.Context(), isbn, PriceUpdate{
		SellPrice:         req.SellPrice,
		HighestPrice:      req.HighestPrice,
		HighPayoutCompany: req.HighPayoutCompany,
		LastPriceCheck:    req.LastPriceCheck,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, b, nil)
}

// Delete handles DELETE /v1/books/{isbn}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	isbn, ok := pathISBN(w, r)
	if !ok {
		return
	}
	b, err := h.service.Delete(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, b, nil)
}

// RefreshPrice handles POST /v1/books/{isbn}/refresh-price
func (h *HTTPHandler) RefreshPrice(w http.ResponseWriter, r *http.Request) {
	isbn, ok := pathISBN(w, r)
	if !ok {
		return
	}
	prices, err := h.service.RefreshPrice(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	prices.Quotes = nil
	httpx.JSONSuccessWithRequest(r, w, prices, nil)
}

// PreviewPrices handles GET /v1/prices/{isbn}
func (h *HTTPHandler) PreviewPrices(w http.ResponseWriter, r *http.Request) {
	isbn, ok := pathISBN(w, r)
	if !ok {
		return
	}
	prices, err := h.service.PreviewPrices(r.Context(), isbn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, prices, nil)
}

func pathISBN(w http.ResponseWriter, r *http.Request) (string, bool) {
	isbn := r.PathValue("isbn")
	if strings.TrimSpace(isbn) == "" {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", ErrInvalidISBN.Error(), nil)
		return "", false
	}
	return isbn, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidISBN), errors.Is(err, ErrInvalidPrices):
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONErrorWithRequest(r, w, http.StatusNotFound, "NOT_FOUND", "ISBN not found", nil)
	case errors.Is(err, ErrDuplicate):
		httpx.JSONErrorWithRequest(r, w, http.StatusConflict, "CONFLICT", "Book already exists", nil)
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", httpx.RequestIDFrom(r), "error", err)
		httpx.JSONErrorWithRequest(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
