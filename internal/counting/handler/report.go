package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/service"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/httputil"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
)

// ReportHandler handles validation and reconciliation report endpoints
type ReportHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// Validation reports whether the inventory is ready to close
func (h *ReportHandler) Validation(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	report, err := h.service.ValidateInventory(r.Context(), inventoryID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Reconciliation compares final quantities against the snapshot
func (h *ReportHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "id")

	report, err := h.service.ReconcileInventory(r.Context(), inventoryID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
