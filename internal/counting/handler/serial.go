package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/service"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/httputil"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// SerialHandler handles serial reading endpoints
type SerialHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewSerialHandler creates a new serial handler
func NewSerialHandler(svc *service.Service, log *logger.Logger) *SerialHandler {
	return &SerialHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterReading records one handheld serial scan
func (h *SerialHandler) RegisterReading(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	var req service.RegisterReadingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	reading, err := h.service.RegisterReading(r.Context(), inventoryID, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reading)
}

// ListSerials returns the serial rows of an inventory. Elevated roles only:
// the reconciliation state reveals what earlier passes found.
func (h *SerialHandler) ListSerials(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	serials, err := h.service.ListSerials(r.Context(), inventoryID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, serials)
}
