package handler

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"exemplarparty/internal/service"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	exportSvc *service.ExportService
	logger    *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(exportSvc *service.ExportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{exportSvc: exportSvc, logger: logger}
}

// ExportCSV handles GET /v1/export.csv
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.exportSvc.WriteCSV(r.Context(), &buf); err != nil {
		h.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="exemplar-export.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
