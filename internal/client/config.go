package client

import (
	"time"

	"github.com/okian/appraisal/internal/domain/model"
)

// Config holds the settings of a batch run.
type Config struct {
	BaseURL string        // Base URL of the service
	Input   string        // JSON file with one request or an array of them
	Output  string        // Results file; empty means results_TIMESTAMP.json
	Workers int           // Concurrent requests
	Timeout time.Duration // Per-request timeout
	Export  bool          // Also export every successful report
	Verbose bool          // Log each request
}

// Result is the outcome of one input request.
type Result struct {
	Index     int                    `json:"index"`
	RequestID string                 `json:"request_id"`
	Report    *model.ValuationReport `json:"report,omitempty"`
	Link      string                 `json:"link,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Stats holds batch statistics.
type Stats struct {
	Requests      int
	Succeeded     int
	Failed        int
	Exported      int
	ExportFailed  int
	NoComparables int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
