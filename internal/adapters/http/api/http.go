// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/appraisal/internal/app"
	"github.com/okian/appraisal/internal/domain/model"
)

// Request body limits.
const (
	maxValuationBody = 1 << 20
	maxExportBody    = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RunValuation runs the valuation pipeline for one property.
	RunValuation(ctx context.Context, attrs model.PropertyAttributes) (model.ValuationResult, error)
	// Export publishes a report as a spreadsheet and returns its link.
	Export(ctx context.Context, r model.ValuationReport) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	valuationHandler *ValuationHandler
	exportHandler    *ExportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		valuationHandler: NewValuationHandler(deps),
		exportHandler:    NewExportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/doc", MetricsMiddleware(s.valuationHandler.HandleValuation, "doc"))
	mux.HandleFunc("/excel", MetricsMiddleware(s.exportHandler.HandleExport, "excel"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
	Status  int    `json:"status"`
}

type exportResponse struct {
	Link string `json:"link"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, Status: status})
}

// writeServiceError renders an error returned by the service with the status
// its kind maps to, including the failed stage for pipeline errors.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)
	resp := errorResponse{Code: string(kind), Message: err.Error(), Status: status}

	var pe *service.PipelineError
	if errors.As(err, &pe) {
		resp.Stage = pe.Stage.String()
	}
	writeJSON(w, status, resp)
}

// decodeBody reads a JSON body of at most limit bytes into v.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
