package reports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mandi-erp/mandi-erp/internal/platform/httpx"
	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// Handler serves the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes. The balance-sheet and earnings
// endpoints return the full picture; the narrower routes project single
// concerns out of the same computations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger", h.ledger)
	r.Get("/cash-book", h.cashBook)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/buyer-balance-sheet", h.buyerBalanceSheet)
	r.Get("/supplier-balance-sheet", h.supplierBalanceSheet)
	r.Get("/invoice-aging", h.invoiceAging)
	r.Get("/earnings", h.earnings)
	r.Get("/commission", h.commission)
	r.Get("/wages", h.wages)
	r.Get("/discounts", h.discounts)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := LedgerQuery{Range: shared.ParseDateRange(q)}
	if v := q.Get("buyerId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid buyerId")
			return
		}
		query.BuyerID = id
	}
	if v := q.Get("supplierId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplierId")
			return
		}
		query.SupplierID = id
	}
	report, err := h.service.Ledger(r.Context(), query)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) cashBook(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CashBook(r.Context(), shared.ParseDateRange(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) buyerBalanceSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"buyers":          sheet.Buyers,
		"totalReceivable": sheet.TotalReceivable,
	})
}

func (h *Handler) supplierBalanceSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"suppliers":    sheet.Suppliers,
		"totalPayable": sheet.TotalPayable,
	})
}

func (h *Handler) invoiceAging(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.BalanceSheet(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type buyerAgingRow struct {
		BuyerID int64        `json:"buyerId"`
		Name    string       `json:"name"`
		Aging   AgingBuckets `json:"aging"`
	}
	type supplierAgingRow struct {
		SupplierID int64        `json:"supplierId"`
		Name       string       `json:"name"`
		Aging      AgingBuckets `json:"aging"`
	}
	buyers := make([]buyerAgingRow, 0, len(sheet.Buyers))
	for _, b := range sheet.Buyers {
		buyers = append(buyers, buyerAgingRow{BuyerID: b.BuyerID, Name: b.Name, Aging: b.Aging})
	}
	suppliers := make([]supplierAgingRow, 0, len(sheet.Suppliers))
	for _, s := range sheet.Suppliers {
		suppliers = append(suppliers, supplierAgingRow{SupplierID: s.SupplierID, Name: s.Name, Aging: s.Aging})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buyers": buyers, "suppliers": suppliers})
}

func (h *Handler) earnings(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Earnings(r.Context(), shared.ParseDateRange(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) commission(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Earnings(r.Context(), shared.ParseDateRange(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":       report.From,
		"to":         report.To,
		"commission": report.Commission,
	})
}

func (h *Handler) wages(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Earnings(r.Context(), shared.ParseDateRange(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":          report.From,
		"to":            report.To,
		"supplierWages": report.SupplierWages,
		"buyerWages":    report.BuyerWages,
		"total":         report.SupplierWages + report.BuyerWages,
	})
}

func (h *Handler) discounts(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Earnings(r.Context(), shared.ParseDateRange(r.URL.Query()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":           report.From,
		"to":             report.To,
		"discountsGiven": report.DiscountsGiven,
	})
}
