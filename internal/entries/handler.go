package entries

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

// Handler manages entry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers entry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/items/{itemID}/auction", h.auction)
}

type itemRequest struct {
	ProductID   int64   `json:"productId" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	GrossWeight float64 `json:"grossWeight"`
	ShuteWeight float64 `json:"shuteWeight"`
}

type createEntryRequest struct {
	SupplierID int64         `json:"supplierId" validate:"required"`
	EntryDate  string        `json:"entryDate"` // YYYY-MM-DD, defaults to today
	Items      []itemRequest `json:"items"`
}

type auctionRequest struct {
	BuyerID         int64   `json:"buyerId" validate:"required"`
	RatePerQuantity float64 `json:"ratePerQuantity" validate:"gt=0"`
}

type itemResponse struct {
	ID                int64    `json:"id"`
	SubSerialNumber   int      `json:"subSerialNumber"`
	ProductID         int64    `json:"productId"`
	Quantity          float64  `json:"quantity"`
	GrossWeight       float64  `json:"grossWeight"`
	ShuteWeight       float64  `json:"shuteWeight"`
	NettWeight        float64  `json:"nettWeight"`
	RatePerQuantity   *float64 `json:"ratePerQuantity"`
	BuyerID           *int64   `json:"buyerId"`
	SubTotal          float64  `json:"subTotal"`
	InvoiceID         *int64   `json:"invoiceId"`
	SupplierInvoiceID *int64   `json:"supplierInvoiceId"`
}

type entryResponse struct {
	ID              int64          `json:"id"`
	SerialNumber    string         `json:"serialNumber"`
	SupplierID      int64          `json:"supplierId"`
	EntryDate       string         `json:"entryDate"`
	Items           []itemResponse `json:"items"`
	TotalQuantities float64        `json:"totalQuantities"`
	TotalAmount     float64        `json:"totalAmount"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func toEntryResponse(e Entry) entryResponse {
	items := make([]itemResponse, len(e.Items))
	for i, it := range e.Items {
		items[i] = itemResponse{
			ID:                it.ID,
			SubSerialNumber:   it.SubSerialNumber,
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			GrossWeight:       it.GrossWeight,
			ShuteWeight:       it.ShuteWeight,
			NettWeight:        it.NettWeight,
			RatePerQuantity:   it.RatePerQuantity,
			BuyerID:           it.BuyerID,
			SubTotal:          it.SubTotal,
			InvoiceID:         it.InvoiceID,
			SupplierInvoiceID: it.SupplierInvoiceID,
		}
	}
	return entryResponse{
		ID:              e.ID,
		SerialNumber:    e.SerialNumber,
		SupplierID:      e.SupplierID,
		EntryDate:       e.EntryDate.Format("2006-01-02"),
		Items:           items,
		TotalQuantities: e.TotalQuantities,
		TotalAmount:     e.TotalAmount,
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateEntryInput{SupplierID: req.SupplierID}
	if req.EntryDate != "" {
		d, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entryDate must be YYYY-MM-DD")
			return
		}
		input.EntryDate = d
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, ItemInput(it))
	}

	entry, err := h.service.CreateEntry(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("entry created",
		slog.String("serial", entry.SerialNumber), slog.Int64("supplier", entry.SupplierID))
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req struct {
		Items []itemRequest `json:"items"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateEntryInput{EntryID: id}
	for _, it := range req.Items {
		input.Items = append(input.Items, ItemInput(it))
	}
	entry, err := h.service.UpdateEntry(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.CancelEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) auction(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	var req auctionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.AuctionItem(r.Context(), AuctionInput{
		EntryID:         entryID,
		ItemID:          itemID,
		BuyerID:         req.BuyerID,
		RatePerQuantity: req.RatePerQuantity,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	if v := q.Get("supplier_id"); v != "" {
		filter.SupplierID, _ = strconv.ParseInt(v, 10, 64)
	}
	dr := shared.ParseDateRange(q)
	filter.From, filter.To = dr.From, dr.To

	list, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, len(list))
	for i, e := range list {
		out[i] = toEntryResponse(e)
	}
	httpx.JSON(w, http.StatusOK, out)
}
