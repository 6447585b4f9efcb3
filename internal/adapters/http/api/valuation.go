package api

import (
	"context"
	"net/http"

	"github.com/okian/appraisal/internal/domain/model"
)

// ValuationDependencies defines the interface for valuation dependencies.
type ValuationDependencies interface {
	RunValuation(ctx context.Context, attrs model.PropertyAttributes) (model.ValuationResult, error)
}

// ValuationHandler handles valuation requests.
type ValuationHandler struct {
	deps ValuationDependencies
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(deps ValuationDependencies) *ValuationHandler {
	return &ValuationHandler{deps: deps}
}

// HandleValuation handles POST /doc requests. The body is the property
// attributes; the response is the report with the raw range and comparables.
func (h *ValuationHandler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	var attrs model.PropertyAttributes
	if err := decodeBody(w, r, maxValuationBody, &attrs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err)
		return
	}

	res, err := h.deps.RunValuation(r.Context(), attrs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
