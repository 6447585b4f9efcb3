package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	directoryPermission = 0750
	defaultWorkers      = 4
)

// Run executes a batch: health check, read input, appraise concurrently,
// optionally export, then write the results file.
func Run(ctx context.Context, cfg *Config) ([]Result, Stats, error) {
	stats := Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting appraisal batch",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("input", cfg.Input),
		logger.Int("workers", cfg.Workers),
		logger.Bool("export", cfg.Export))

	c := New(WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout), WithLogger(log.Named("client")))
	if err := c.Health(ctx); err != nil {
		return nil, stats, err
	}

	requests, err := ReadRequests(cfg.Input)
	if err != nil {
		return nil, stats, err
	}
	stats.Requests = len(requests)

	results := Appraise(ctx, c, requests, cfg, &stats)

	if err := SaveResults(ctx, cfg.Output, results); err != nil {
		log.Warn(ctx, "failed to save results", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return results, stats, nil
}

// ReadRequests loads a single request object or an array of them.
func ReadRequests(path string) ([]model.PropertyAttributes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	var requests []model.PropertyAttributes
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &requests); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	} else {
		var one model.PropertyAttributes
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		requests = append(requests, one)
	}
	if len(requests) == 0 {
		return nil, ErrEmptyInput
	}
	return requests, nil
}

// Appraise valuates every request with at most cfg.Workers in flight.
// Results keep input order; a failed request is recorded, not fatal.
func Appraise(ctx context.Context, c *Client, requests []model.PropertyAttributes, cfg *Config, stats *Stats) []Result {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var succeeded, failed, exported, exportFailed, noComps int64
	results := make([]Result, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, attrs := range requests {
		g.Go(func() error {
			res := Result{Index: i}
			out, id, err := c.Valuate(gctx, attrs)
			res.RequestID = id
			if err != nil {
				atomic.AddInt64(&failed, 1)
				res.Error = err.Error()
				results[i] = res
				if cfg.Verbose {
					logger.Get().Warn(gctx, "valuation failed", logger.Int("index", i), logger.Error(err))
				}
				return nil
			}
			atomic.AddInt64(&succeeded, 1)
			if len(out.Comparables) == 0 {
				atomic.AddInt64(&noComps, 1)
			}
			rep := out.Report
			res.Report = &rep

			if cfg.Export {
				link, err := c.Export(gctx, rep)
				if err != nil {
					atomic.AddInt64(&exportFailed, 1)
					res.Error = err.Error()
				} else {
					atomic.AddInt64(&exported, 1)
					res.Link = link
				}
			}
			results[i] = res
			if cfg.Verbose {
				logger.Get().Info(gctx, "valuation done",
					logger.Int("index", i),
					logger.Float64("total", rep.TotalCentral),
					logger.String("link", res.Link))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Succeeded = int(succeeded)
	stats.Failed = int(failed)
	stats.Exported = int(exported)
	stats.ExportFailed = int(exportFailed)
	stats.NoComparables = int(noComps)
	return results
}

// SaveResults writes results as indented JSON.
func SaveResults(ctx context.Context, filename string, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to save")
	}
	if filename == "" {
		filename = "results_" + time.Now().Format("20060102_150405") + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats Stats) {
	var successRate float64
	if stats.Requests > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.Requests) * 100
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("requests", stats.Requests),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("exported", stats.Exported),
		logger.Int("exportFailed", stats.ExportFailed),
		logger.Int("withoutComparables", stats.NoComparables),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate))
}
