package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mandi-erp/mandi-erp/internal/platform/httpx"
)

// Handler manages master data endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/buyers", func(r chi.Router) {
		r.Get("/", h.listBuyers)
		r.Post("/", h.createBuyer)
		r.Get("/{ref}", h.getBuyer)
		r.Put("/{id}", h.updateBuyer)
		r.Delete("/{id}", h.deleteBuyer)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{ref}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Delete("/{id}", h.deleteSupplier)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
}

type buyerRequest struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"displayName"`
	Alias       string `json:"alias"`
	TokenNumber string `json:"tokenNumber"`
	Contact     string `json:"contact"`
	Place       string `json:"place"`
}

type buyerResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Alias       string    `json:"alias,omitempty"`
	TokenNumber string    `json:"tokenNumber,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Place       string    `json:"place,omitempty"`
	Outstanding float64   `json:"outstanding"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toBuyerResponse(b Buyer) buyerResponse {
	return buyerResponse{
		ID:          b.ID,
		Name:        b.Name,
		DisplayName: b.DisplayName,
		Alias:       b.Alias,
		TokenNumber: b.TokenNumber,
		Contact:     b.Contact,
		Place:       b.Place,
		Outstanding: b.Outstanding,
		CreatedAt:   b.CreatedAt,
	}
}

func (h *Handler) createBuyer(w http.ResponseWriter, r *http.Request) {
	var req buyerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	buyer, err := h.service.CreateBuyer(r.Context(), BuyerInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBuyerResponse(buyer))
}

func (h *Handler) updateBuyer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid buyer id")
		return
	}
	var req buyerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	buyer, err := h.service.UpdateBuyer(r.Context(), id, BuyerInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBuyerResponse(buyer))
}

func (h *Handler) deleteBuyer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid buyer id")
		return
	}
	if err := h.service.DeleteBuyer(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getBuyer accepts a numeric canonical id or an external alias.
func (h *Handler) getBuyer(w http.ResponseWriter, r *http.Request) {
	buyer, err := h.service.GetBuyer(r.Context(), parseRef(chi.URLParam(r, "ref")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBuyerResponse(buyer))
}

func (h *Handler) listBuyers(w http.ResponseWriter, r *http.Request) {
	buyers, err := h.service.ListBuyers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]buyerResponse, len(buyers))
	for i, b := range buyers {
		out[i] = toBuyerResponse(b)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type supplierRequest struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"displayName"`
	Alias       string `json:"alias"`
	Contact     string `json:"contact"`
	Place       string `json:"place"`
	BankName    string `json:"bankName"`
	BankAccount string `json:"bankAccount"`
	BankIFSC    string `json:"bankIFSC"`
}

type supplierResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Alias       string    `json:"alias,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Place       string    `json:"place,omitempty"`
	BankName    string    `json:"bankName,omitempty"`
	BankAccount string    `json:"bankAccount,omitempty"`
	BankIFSC    string    `json:"bankIFSC,omitempty"`
	Outstanding float64   `json:"outstanding"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toSupplierResponse(s Supplier) supplierResponse {
	return supplierResponse{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		Alias:       s.Alias,
		Contact:     s.Contact,
		Place:       s.Place,
		BankName:    s.BankName,
		BankAccount: s.BankAccount,
		BankIFSC:    s.BankIFSC,
		Outstanding: s.Outstanding,
		CreatedAt:   s.CreatedAt,
	}
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), SupplierInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	supplier, err := h.service.UpdateSupplier(r.Context(), id, SupplierInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.GetSupplier(r.Context(), parseRef(chi.URLParam(r, "ref")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		out[i] = toSupplierResponse(s)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type productRequest struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"displayName"`
}

type productResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.CreateProduct(r.Context(), ProductInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, productResponse{ID: product.ID, Name: product.Name, DisplayName: product.DisplayName})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, ProductInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productResponse{ID: product.ID, Name: product.Name, DisplayName: product.DisplayName})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productResponse{ID: product.ID, Name: product.Name, DisplayName: product.DisplayName})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productResponse{ID: p.ID, Name: p.Name, DisplayName: p.DisplayName}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func parseRef(raw string) EntityRef {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return RefByID(id)
	}
	return RefByAlias(raw)
}
