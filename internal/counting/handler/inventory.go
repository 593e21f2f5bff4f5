// Package handler exposes the counting workflow over HTTP. Handlers decode
// and validate requests, delegate to the service and translate errors; no
// counting rule lives here.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/domain"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/service"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/httputil"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// InventoryHandler handles campaign lifecycle endpoints
type InventoryHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.Service, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  log,
	}
}

// Create plans a new counting campaign
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateInventoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	inv, err := h.service.CreateInventory(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, inv)
}

// Get fetches one campaign
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.GetInventory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// List returns campaigns with pagination metadata
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.InventoryStatus(r.URL.Query().Get("status"))

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	invs, total, err := h.service.ListInventories(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	httputil.JSONWithMeta(w, http.StatusOK, invs, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	})
}

// Open snapshots the scope and opens the campaign for counting
func (h *InventoryHandler) Open(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.OpenInventory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// openStageRequest selects the counting pass to open
type openStageRequest struct {
	Stage int `json:"stage" validate:"required,min=1,max=4"`
}

// OpenStage opens a counting pass
func (h *InventoryHandler) OpenStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req openStageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	inv, err := h.service.OpenStage(r.Context(), id, domain.CountStage(req.Stage))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// CloseStage closes the currently open counting pass
func (h *InventoryHandler) CloseStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.CloseStage(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// Close finishes the campaign and commits final quantities to stock
func (h *InventoryHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.CloseInventory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// Cancel cancels the campaign
func (h *InventoryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := h.service.CancelInventory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}

// Migrate retries the stock commit for a closed campaign
func (h *InventoryHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.Error(w, errors.BadRequest("inventory id is required"))
		return
	}

	inv, err := h.service.MigrateInventory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, inv)
}
