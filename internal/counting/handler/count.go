package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/service"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/httputil"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// CountHandler handles blind count endpoints
type CountHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewCountHandler creates a new count handler
func NewCountHandler(svc *service.Service, log *logger.Logger) *CountHandler {
	return &CountHandler{
		service: svc,
		logger:  log,
	}
}

// ListItems returns the items of an inventory. Counts and expectations are
// stripped for regular counters.
func (h *CountHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	items, err := h.service.ListItems(r.Context(), inventoryID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// GetItem returns one item, blind for regular counters
func (h *CountHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	item, err := h.service.GetItem(r.Context(), itemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// RecordCount records a blind count for the stage currently open
func (h *CountHandler) RecordCount(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req service.RecordCountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.RecordCount(r.Context(), itemID, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// CorrectCount overwrites a recorded count. Elevated roles only; the route is
// additionally gated by RequireElevated middleware.
func (h *CountHandler) CorrectCount(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req service.CorrectCountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.CorrectCount(r.Context(), itemID, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Progress reports counting progress for an inventory
func (h *CountHandler) Progress(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	report, err := h.service.GetProgress(r.Context(), inventoryID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
