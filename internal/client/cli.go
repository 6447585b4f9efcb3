package client

import (
	"fmt"
	"os"

	"github.com/okian/appraisal/pkg/logger"
)

// SetupLogging initializes the global logger on stderr so stdout stays
// free for the printed summary.
func SetupLogging(format string, verbose bool) error {
	if err := logger.InitWith(os.Stderr, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the appraise tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Appraise
========

Sends property valuation requests to a running appraisal service.

Usage:
  appraise [options] -input requests.json

Options:
  -url string
        Base URL of the service (default "http://localhost:3000")
  -input string
        JSON file with one request object or an array of them
  -output string
        Results file (default: results_TIMESTAMP.json)
  -workers int
        Concurrent requests (default 4)
  -timeout duration
        Per-request timeout (default 90s)
  -export
        Also export every report to a spreadsheet link
  -log-format string
        text or json (default "text")
  -verbose
        Log each request
  -help
        Show this help message

Examples:
  appraise -input apartment.json
  appraise -input batch.json -workers 8 -export -url http://localhost:8080
`)
}

// PrintSummary writes one line per result to stdout.
func PrintSummary(results []Result) {
	for _, r := range results {
		switch {
		case r.Report == nil:
			fmt.Printf("#%d failed: %s\n", r.Index, r.Error)
		case r.Link != "":
			fmt.Printf("#%d %s R$ %.2f (%.2f - %.2f) %s\n", r.Index, r.Report.PostalCode,
				r.Report.TotalCentral, r.Report.TotalMin, r.Report.TotalMax, r.Link)
		default:
			fmt.Printf("#%d %s R$ %.2f (%.2f - %.2f)%s\n", r.Index, r.Report.PostalCode,
				r.Report.TotalCentral, r.Report.TotalMin, r.Report.TotalMax, exportNote(r))
		}
	}
}

func exportNote(r Result) string {
	if r.Error == "" {
		return ""
	}
	return " export failed: " + r.Error
}
