package billing

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

// Handler manages buyer and supplier invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
		r.Delete("/{id}", h.deleteInvoice)
	})
	r.Route("/supplier-invoices", func(r chi.Router) {
		r.Get("/", h.listSupplierInvoices)
		r.Post("/", h.createSupplierInvoice)
		r.Get("/{id}", h.getSupplierInvoice)
		r.Put("/{id}", h.updateSupplierInvoice)
		r.Delete("/{id}", h.deleteSupplierInvoice)
	})
}

type createInvoiceRequest struct {
	BuyerID      int64    `json:"buyerId" validate:"required"`
	EntryItemIDs []int64  `json:"entryItemIds" validate:"min=1"`
	Wages        float64  `json:"wages"`
	Adjustments  float64  `json:"adjustments"`
	Discount     float64  `json:"discount"`
	NettAmount   *float64 `json:"nettAmount"`
}

type updateInvoiceRequest struct {
	Wages       float64 `json:"wages"`
	Adjustments float64 `json:"adjustments"`
	Discount    float64 `json:"discount"`
}

type invoiceItemResponse struct {
	ID              int64   `json:"id"`
	EntryItemID     int64   `json:"entryItemId"`
	ProductID       int64   `json:"productId"`
	ProductName     string  `json:"productName"`
	Quantity        float64 `json:"quantity"`
	RatePerQuantity float64 `json:"ratePerQuantity"`
	SubTotal        float64 `json:"subTotal"`
}

type invoiceResponse struct {
	ID              int64                 `json:"id"`
	InvoiceNumber   string                `json:"invoiceNumber"`
	BuyerID         int64                 `json:"buyerId"`
	Items           []invoiceItemResponse `json:"items"`
	TotalQuantities float64               `json:"totalQuantities"`
	TotalAmount     float64               `json:"totalAmount"`
	Wages           float64               `json:"wages"`
	Adjustments     float64               `json:"adjustments"`
	NettAmount      float64               `json:"nettAmount"`
	PaidAmount      float64               `json:"paidAmount"`
	Discount        float64               `json:"discount"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func toInvoiceResponse(inv Invoice) invoiceResponse {
	items := make([]invoiceItemResponse, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = invoiceItemResponse{
			ID:              it.ID,
			EntryItemID:     it.EntryItemID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			RatePerQuantity: it.RatePerQuantity,
			SubTotal:        it.SubTotal,
		}
	}
	return invoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		BuyerID:         inv.BuyerID,
		Items:           items,
		TotalQuantities: inv.TotalQuantities,
		TotalAmount:     inv.TotalAmount,
		Wages:           inv.Wages,
		Adjustments:     inv.Adjustments,
		NettAmount:      inv.NettAmount,
		PaidAmount:      inv.PaidAmount,
		Discount:        inv.Discount,
		CreatedAt:       inv.CreatedAt,
	}
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		BuyerID:      req.BuyerID,
		EntryItemIDs: req.EntryItemIDs,
		Wages:        req.Wages,
		Adjustments:  req.Adjustments,
		Discount:     req.Discount,
		NettAmount:   req.NettAmount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("buyer invoice created",
		slog.String("number", inv.InvoiceNumber), slog.Int64("buyer", inv.BuyerID))
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req updateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	inv, err := h.service.UpdateInvoice(r.Context(), UpdateInvoiceInput{
		InvoiceID:   id,
		Wages:       req.Wages,
		Adjustments: req.Adjustments,
		Discount:    req.Discount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if v := q.Get("buyer_id"); v != "" {
		filter.BuyerID, _ = strconv.ParseInt(v, 10, 64)
	}
	dr := shared.ParseDateRange(q)
	filter.From, filter.To = dr.From, dr.To

	list, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]invoiceResponse, len(list))
	for i, inv := range list {
		out[i] = toInvoiceResponse(inv)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createSupplierInvoiceRequest struct {
	SupplierID     int64    `json:"supplierId" validate:"required"`
	EntryIDs       []int64  `json:"entryIds" validate:"min=1"`
	CommissionRate float64  `json:"commissionRate" validate:"gte=0,lte=100"`
	Wages          *float64 `json:"wages"` // nil means auto-calculate
	Adjustments    float64  `json:"adjustments"`
}

type updateSupplierInvoiceRequest struct {
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=100"`
	Wages          float64 `json:"wages"`
	Adjustments    float64 `json:"adjustments"`
}

type supplierInvoiceItemResponse struct {
	ID              int64   `json:"id"`
	ProductID       int64   `json:"productId"`
	ProductName     string  `json:"productName"`
	RatePerQuantity float64 `json:"ratePerQuantity"`
	Quantity        float64 `json:"quantity"`
	GrossWeight     float64 `json:"grossWeight"`
	ShuteWeight     float64 `json:"shuteWeight"`
	NettWeight      float64 `json:"nettWeight"`
	SubTotal        float64 `json:"subTotal"`
}

type supplierInvoiceResponse struct {
	ID               int64                         `json:"id"`
	InvoiceNumber    string                        `json:"invoiceNumber"`
	SupplierID       int64                         `json:"supplierId"`
	EntryIDs         []int64                       `json:"entryIds"`
	Items            []supplierInvoiceItemResponse `json:"items"`
	TotalQuantities  float64                       `json:"totalQuantities"`
	GrossTotal       float64                       `json:"grossTotal"`
	CommissionRate   float64                       `json:"commissionRate"`
	CommissionAmount float64                       `json:"commissionAmount"`
	Wages            float64                       `json:"wages"`
	Adjustments      float64                       `json:"adjustments"`
	NettAmount       float64                       `json:"nettAmount"`
	AdvancePaid      float64                       `json:"advancePaid"`
	FinalPayable     float64                       `json:"finalPayable"`
	PaidAmount       float64                       `json:"paidAmount"`
	Status           SupplierInvoiceStatus         `json:"status"`
	CreatedAt        time.Time                     `json:"createdAt"`
}

func toSupplierInvoiceResponse(inv SupplierInvoice) supplierInvoiceResponse {
	items := make([]supplierInvoiceItemResponse, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = supplierInvoiceItemResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			RatePerQuantity: it.RatePerQuantity,
			Quantity:        it.Quantity,
			GrossWeight:     it.GrossWeight,
			ShuteWeight:     it.ShuteWeight,
			NettWeight:      it.NettWeight,
			SubTotal:        it.SubTotal,
		}
	}
	return supplierInvoiceResponse{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		SupplierID:       inv.SupplierID,
		EntryIDs:         inv.EntryIDs,
		Items:            items,
		TotalQuantities:  inv.TotalQuantities,
		GrossTotal:       inv.GrossTotal,
		CommissionRate:   inv.CommissionRate,
		CommissionAmount: inv.CommissionAmount,
		Wages:            inv.Wages,
		Adjustments:      inv.Adjustments,
		NettAmount:       inv.NettAmount,
		AdvancePaid:      inv.AdvancePaid,
		FinalPayable:     inv.FinalPayable,
		PaidAmount:       inv.PaidAmount,
		Status:           inv.Status,
		CreatedAt:        inv.CreatedAt,
	}
}

func (h *Handler) createSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	var req createSupplierInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.CreateSupplierInvoice(r.Context(), CreateSupplierInvoiceInput{
		SupplierID:     req.SupplierID,
		EntryIDs:       req.EntryIDs,
		CommissionRate: req.CommissionRate,
		Wages:          req.Wages,
		Adjustments:    req.Adjustments,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("supplier invoice created",
		slog.String("number", inv.InvoiceNumber), slog.Int64("supplier", inv.SupplierID))
	httpx.JSON(w, http.StatusCreated, toSupplierInvoiceResponse(inv))
}

func (h *Handler) updateSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req updateSupplierInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.UpdateSupplierInvoice(r.Context(), UpdateSupplierInvoiceInput{
		InvoiceID:      id,
		CommissionRate: req.CommissionRate,
		Wages:          req.Wages,
		Adjustments:    req.Adjustments,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierInvoiceResponse(inv))
}

func (h *Handler) deleteSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	if err := h.service.DeleteSupplierInvoice(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSupplierInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.GetSupplierInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierInvoiceResponse(inv))
}

func (h *Handler) listSupplierInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if v := q.Get("supplier_id"); v != "" {
		filter.SupplierID, _ = strconv.ParseInt(v, 10, 64)
	}
	dr := shared.ParseDateRange(q)
	filter.From, filter.To = dr.From, dr.To

	list, err := h.service.ListSupplierInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierInvoiceResponse, len(list))
	for i, inv := range list {
		out[i] = toSupplierInvoiceResponse(inv)
	}
	httpx.JSON(w, http.StatusOK, out)
}
