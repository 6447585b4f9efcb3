package api

import (
	"context"
	"net/http"

	"github.com/okian/appraisal/internal/domain/model"
)

// ExportDependencies defines the interface for export dependencies.
type ExportDependencies interface {
	Export(ctx context.Context, r model.ValuationReport) (string, error)
}

// ExportHandler handles export requests.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleExport handles POST /excel requests. The body is a report as
// returned by /doc; the response carries the public download link.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var rep model.ValuationReport
	if err := decodeBody(w, r, maxExportBody, &rep); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	link, err := h.deps.Export(r.Context(), rep)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Link: link})
}
