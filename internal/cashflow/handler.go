package cashflow

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mandi-erp/mandi-erp/internal/platform/httpx"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// Handler manages cash-flow endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cash-flow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/buyer-payments", h.recordBuyerPayment)
	r.Post("/supplier-payments", h.recordSupplierPayment)
	r.Post("/expenses", h.recordExpense)
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
	})
}

type buyerPaymentRequest struct {
	BuyerID     int64   `json:"buyerId" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Discount    float64 `json:"discount" validate:"gte=0"`
	Method      Method  `json:"method" validate:"omitempty,oneof=CASH BANK"`
	Reference   string  `json:"reference"`
	Description string  `json:"description"`
	Date        string  `json:"date"` // YYYY-MM-DD, defaults to today
	InvoiceIDs  []int64 `json:"relatedInvoiceIds"`
}

type supplierPaymentRequest struct {
	SupplierID         int64   `json:"supplierId" validate:"required"`
	Amount             float64 `json:"amount" validate:"gt=0"`
	Method             Method  `json:"method" validate:"omitempty,oneof=CASH BANK"`
	Reference          string  `json:"reference"`
	Description        string  `json:"description"`
	Date               string  `json:"date"`
	Advance            bool    `json:"advance"`
	EntryIDs           []int64 `json:"entryIds"`
	SupplierInvoiceIDs []int64 `json:"relatedInvoiceIds"`
}

type expenseRequest struct {
	Amount      float64 `json:"amount" validate:"gt=0"`
	Method      Method  `json:"method" validate:"omitempty,oneof=CASH BANK"`
	Reference   string  `json:"reference"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type transactionResponse struct {
	ID                 int64     `json:"id"`
	Type               Type      `json:"type"`
	Category           Category  `json:"category"`
	Amount             float64   `json:"amount"`
	Discount           float64   `json:"discount"`
	Method             Method    `json:"method"`
	Reference          string    `json:"reference"`
	Description        string    `json:"description"`
	BuyerID            *int64    `json:"buyerId"`
	SupplierID         *int64    `json:"supplierId"`
	Date               string    `json:"date"`
	InvoiceIDs         []int64   `json:"invoiceIds"`
	SupplierInvoiceIDs []int64   `json:"supplierInvoiceIds"`
	EntryIDs           []int64   `json:"entryIds"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toTransactionResponse(txn Transaction) transactionResponse {
	return transactionResponse{
		ID:                 txn.ID,
		Type:               txn.Type,
		Category:           txn.Category,
		Amount:             txn.Amount,
		Discount:           txn.Discount,
		Method:             txn.Method,
		Reference:          txn.Reference,
		Description:        txn.Description,
		BuyerID:            txn.BuyerID,
		SupplierID:         txn.SupplierID,
		Date:               txn.Date.Format("2006-01-02"),
		InvoiceIDs:         txn.InvoiceIDs,
		SupplierInvoiceIDs: txn.SupplierInvoiceIDs,
		EntryIDs:           txn.EntryIDs,
		CreatedAt:          txn.CreatedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *Handler) recordBuyerPayment(w http.ResponseWriter, r *http.Request) {
	var req buyerPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	txn, err := h.service.RecordBuyerPayment(r.Context(), BuyerPaymentInput{
		BuyerID:     req.BuyerID,
		Amount:      req.Amount,
		Discount:    req.Discount,
		Method:      req.Method,
		Reference:   req.Reference,
		Description: req.Description,
		Date:        date,
		InvoiceIDs:  req.InvoiceIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("buyer payment recorded",
		slog.Int64("buyer", req.BuyerID), slog.Float64("amount", req.Amount))
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) recordSupplierPayment(w http.ResponseWriter, r *http.Request) {
	var req supplierPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	txn, err := h.service.RecordSupplierPayment(r.Context(), SupplierPaymentInput{
		SupplierID:         req.SupplierID,
		Amount:             req.Amount,
		Method:             req.Method,
		Reference:          req.Reference,
		Description:        req.Description,
		Date:               date,
		Advance:            req.Advance,
		EntryIDs:           req.EntryIDs,
		SupplierInvoiceIDs: req.SupplierInvoiceIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("supplier payment recorded",
		slog.Int64("supplier", req.SupplierID), slog.Float64("amount", req.Amount),
		slog.Bool("advance", req.Advance))
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	txn, err := h.service.RecordExpense(r.Context(), ExpenseInput{
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(txn))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Type:     Type(q.Get("type")),
		Category: Category(q.Get("category")),
	}
	if v := q.Get("buyer_id"); v != "" {
		filter.BuyerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("supplier_id"); v != "" {
		filter.SupplierID, _ = strconv.ParseInt(v, 10, 64)
	}
	dr := shared.ParseDateRange(q)
	filter.From, filter.To = dr.From, dr.To

	list, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]transactionResponse, len(list))
	for i, txn := range list {
		out[i] = toTransactionResponse(txn)
	}
	httpx.JSON(w, http.StatusOK, out)
}
