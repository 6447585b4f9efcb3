package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/appraisal/internal/client"
)

const (
	defaultWorkers  = 4
	defaultTimeout  = 90 * time.Second
	defaultDeadline = 30 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:3000", "Base URL of the service")
		input     = flag.String("input", "", "JSON file with one request or an array of requests")
		output    = flag.String("output", "", "Results file (default: results_TIMESTAMP.json)")
		workers   = flag.Int("workers", defaultWorkers, "Concurrent requests")
		timeout   = flag.Duration("timeout", defaultTimeout, "Per-request timeout")
		export    = flag.Bool("export", false, "Also export every report")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log each request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *input == "" {
		client.ShowHelp()
		return
	}

	if err := client.SetupLogging(*logFormat, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultDeadline)
	defer cancel()

	cfg := &client.Config{
		BaseURL: *baseURL,
		Input:   *input,
		Output:  *output,
		Workers: *workers,
		Timeout: *timeout,
		Export:  *export,
		Verbose: *verbose,
	}

	results, stats, err := client.Run(ctx, cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("Appraisal failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	client.PrintSummary(results)
	if stats.Failed > 0 || stats.ExportFailed > 0 {
		os.Exit(2)
	}
}
