// Package service runs property valuations and exports their reports. It
// implements the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/appraisal/internal/adapters/filestore"
	"github.com/okian/appraisal/internal/adapters/spreadsheet"
	"github.com/okian/appraisal/internal/adapters/valuation"
	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/internal/domain/report"
	"github.com/okian/appraisal/pkg/logger"
	"github.com/okian/appraisal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultStageTimeout      = 15 * time.Second
	defaultExportTimeout     = 60 * time.Second
	compensationTimeout      = 10 * time.Second
	providerGeocoder         = "geocoder"
	providerValuation        = "valuation"
	providerFileStore        = "filestore"
	compensationOutcomeOK    = metrics.OutcomeSuccess
	compensationOutcomeError = metrics.OutcomeFailure
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, addr model.Address) (model.Coordinates, error)
}

// Renderer turns a report into a spreadsheet file.
type Renderer interface {
	Render(r model.ValuationReport, title string) ([]byte, error)
}

// Service implements the API dependencies for the appraisal system. It holds
// only read-only configuration; every run keeps its state on the stack.
type Service struct {
	// Ports
	geocoder   Geocoder
	valuation  valuation.Provider
	renderer   Renderer
	store      filestore.Store
	normalizer *report.Normalizer

	// Configuration
	stageTimeout  time.Duration
	exportTimeout time.Duration
	clock         func() time.Time

	// Counters for GetStats
	runs           atomic.Int64
	runFailures    atomic.Int64
	degraded       atomic.Int64
	exports        atomic.Int64
	exportFailures atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGeocoder sets the geocoding provider.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithValuationProvider sets the valuation provider.
func WithValuationProvider(p valuation.Provider) Option {
	return func(s *Service) { s.valuation = p }
}

// WithRenderer replaces the spreadsheet renderer.
func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithFileStore enables export to the given store.
func WithFileStore(st filestore.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithStageTimeout bounds every pipeline stage.
func WithStageTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stageTimeout = d
		}
	}
}

// WithExportTimeout bounds a whole export.
func WithExportTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.exportTimeout = d
		}
	}
}

// WithClock sets the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{
		renderer:      spreadsheet.Renderer{},
		stageTimeout:  defaultStageTimeout,
		exportTimeout: defaultExportTimeout,
		clock:         time.Now,
		logger:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.normalizer = report.NewNormalizer(report.WithClock(s.clock))
	return s
}

// RunValuation geocodes the address, obtains the valuation range and the
// comparables, and normalizes them into a report.
//
// Invalid attributes fail before any outbound call with an error wrapping
// model.ErrInvalidAttributes. Every other failure is a *PipelineError naming
// the stage. A failed comparables call degrades to an empty list unless ctx
// itself was canceled.
func (s *Service) RunValuation(ctx context.Context, attrs model.PropertyAttributes) (model.ValuationResult, error) {
	if s.geocoder == nil || s.valuation == nil {
		return model.ValuationResult{}, ErrServiceNotConfigured
	}
	s.runs.Add(1)

	if err := attrs.Validate(); err != nil {
		s.runFailures.Add(1)
		metrics.RecordPipelineRun(metrics.OutcomeFailure)
		metrics.RecordStageFailure(StageFailed.String(), string(KindInvalidInput))
		s.logger.Info(ctx, "valuation rejected", logger.Error(err))
		return model.ValuationResult{}, err
	}

	coords, err := s.geocode(ctx, attrs.Address)
	if err != nil {
		return model.ValuationResult{}, s.fail(ctx, &PipelineError{Stage: StageGeocoding, Err: err})
	}

	rng, comps, err := s.value(ctx, model.NewValuationInput(attrs, coords))
	if err != nil {
		var pe *PipelineError
		if !errors.As(err, &pe) {
			pe = &PipelineError{Stage: StageEstimating, Err: err}
		}
		return model.ValuationResult{}, s.fail(ctx, pe)
	}

	s.enter(ctx, StageNormalizing)
	start := time.Now()
	rep := s.normalizer.Normalize(attrs, coords, rng, comps)
	s.leave(ctx, StageNormalizing, start)

	metrics.RecordPipelineRun(metrics.OutcomeSuccess)
	metrics.RecordComparablesReturned(len(rep.Comparables))
	s.enter(ctx, StageDone)

	return model.ValuationResult{
		Report:      rep,
		Range:       rng,
		Comparables: append([]model.ComparableListing{}, rep.Comparables...),
	}, nil
}

func (s *Service) geocode(ctx context.Context, addr model.Address) (model.Coordinates, error) {
	s.enter(ctx, StageGeocoding)
	start := time.Now()
	defer s.leave(ctx, StageGeocoding, start)

	sctx, cancel := context.WithTimeout(ctx, s.stageTimeout)
	defer cancel()

	coords, err := s.geocoder.Geocode(sctx, addr)
	metrics.RecordUpstreamCall(providerGeocoder, "geocode", msSince(start))
	return coords, err
}

// value authenticates once, then runs the estimate and the comparables
// lookup concurrently with the same token.
func (s *Service) value(ctx context.Context, input model.ValuationInput) (model.ValuationRange, []model.ComparableListing, error) {
	s.enter(ctx, StageEstimating)
	start := time.Now()
	deadline := start.Add(s.stageTimeout)

	actx, cancel := context.WithDeadline(ctx, deadline)
	sess, err := valuation.NewSession(actx, s.valuation)
	cancel()
	metrics.RecordUpstreamCall(providerValuation, "login", msSince(start))
	if err != nil {
		s.leave(ctx, StageEstimating, start)
		return model.ValuationRange{}, nil, &PipelineError{Stage: StageEstimating, Err: err}
	}

	var (
		rng       model.ValuationRange
		comps     []model.ComparableListing
		estimated bool
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer s.leave(ctx, StageEstimating, start)
		ectx, cancel := context.WithDeadline(gctx, deadline)
		defer cancel()

		callStart := time.Now()
		r, err := sess.Estimate(ectx, input)
		metrics.RecordUpstreamCall(providerValuation, "avm", msSince(callStart))
		if err != nil {
			return &PipelineError{Stage: StageEstimating, Err: err}
		}
		rng = r
		estimated = true
		return nil
	})

	g.Go(func() error {
		s.enter(ctx, StageFetchingComparables)
		callStart := time.Now()
		defer s.leave(ctx, StageFetchingComparables, callStart)
		cctx, cancel := context.WithTimeout(gctx, s.stageTimeout)
		defer cancel()

		list, err := sess.Comparables(cctx, input)
		metrics.RecordUpstreamCall(providerValuation, "bros", msSince(callStart))
		switch {
		case err == nil:
			if list == nil {
				list = []model.ComparableListing{}
			}
			comps = list
			return nil
		case ctx.Err() != nil:
			return &PipelineError{Stage: StageFetchingComparables, Err: ctx.Err()}
		case gctx.Err() != nil:
			// The estimate failed and canceled this call; its error is reported.
			return nil
		}

		s.degraded.Add(1)
		metrics.RecordComparablesDegraded()
		s.logger.Warn(ctx, "comparables unavailable, continuing without them",
			logger.String("stage", StageFetchingComparables.String()),
			logger.String("kind", string(KindOf(err))),
			logger.Error(err),
		)
		comps = []model.ComparableListing{}
		return nil
	})

	err = g.Wait()
	// A canceled caller is charged to the first stage still pending, whichever
	// goroutine noticed first.
	if cerr := ctx.Err(); cerr != nil {
		stage := StageEstimating
		if estimated {
			stage = StageFetchingComparables
		}
		return model.ValuationRange{}, nil, &PipelineError{Stage: stage, Err: cerr}
	}
	if err != nil {
		return model.ValuationRange{}, nil, err
	}
	return rng, comps, nil
}

func (s *Service) fail(ctx context.Context, pe *PipelineError) error {
	kind := pe.Kind()
	s.runFailures.Add(1)
	metrics.RecordPipelineRun(metrics.OutcomeFailure)
	metrics.RecordStageFailure(pe.Stage.String(), string(kind))
	s.logger.Warn(ctx, "valuation failed",
		logger.String("stage", pe.Stage.String()),
		logger.String("kind", string(kind)),
		logger.Error(pe.Err),
	)
	s.enter(ctx, StageFailed)
	return pe
}

func (s *Service) enter(ctx context.Context, stage Stage) {
	s.logger.Debug(ctx, "pipeline stage", logger.String("stage", stage.String()))
}

func (s *Service) leave(ctx context.Context, stage Stage, start time.Time) {
	elapsed := msSince(start)
	metrics.RecordStageDuration(stage.String(), elapsed)
	s.logger.Debug(ctx, "pipeline stage finished",
		logger.String("stage", stage.String()),
		logger.Float64("duration_ms", elapsed),
	)
}

// Export renders the report as a spreadsheet, uploads it and makes it
// readable by anyone with the link, which is returned.
//
// A file that cannot be made public is deleted again before the
// *ExportError of kind KindPermission is returned.
func (s *Service) Export(ctx context.Context, r model.ValuationReport) (string, error) {
	if s.store == nil {
		return "", ErrExportNotConfigured
	}
	title := report.Title(r)
	if title == "" {
		return "", ErrUntitledReport
	}

	ctx, cancel := context.WithTimeout(ctx, s.exportTimeout)
	defer cancel()

	data, err := s.renderer.Render(r, title)
	if err != nil {
		return "", s.exportFailed(ctx, &ExportError{Kind: KindRender, Err: err})
	}

	start := time.Now()
	fileID, err := s.store.Create(ctx, spreadsheet.FileName(title), spreadsheet.MIMEType, bytes.NewReader(data))
	metrics.RecordUpstreamCall(providerFileStore, "create", msSince(start))
	if err != nil {
		return "", s.exportFailed(ctx, &ExportError{Kind: KindUpload, Err: err})
	}

	start = time.Now()
	err = s.store.MakePublic(ctx, fileID)
	metrics.RecordUpstreamCall(providerFileStore, "permission", msSince(start))
	if err != nil {
		s.compensate(ctx, fileID)
		return "", s.exportFailed(ctx, &ExportError{Kind: KindPermission, FileID: fileID, Err: err})
	}

	s.exports.Add(1)
	metrics.RecordExport(metrics.OutcomeSuccess, "")
	link := filestore.DownloadURL(fileID)
	s.logger.Info(ctx, "report exported",
		logger.String("title", title),
		logger.String("file_id", fileID),
		logger.Int("bytes", len(data)),
	)
	return link, nil
}

// compensate deletes a file that was uploaded but not published. It runs
// even when ctx is already done.
func (s *Service) compensate(ctx context.Context, fileID string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.store.Delete(dctx, fileID); err != nil {
		metrics.RecordExportCompensation(compensationOutcomeError)
		s.logger.Error(ctx, "failed to delete unpublished file",
			logger.String("file_id", fileID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordExportCompensation(compensationOutcomeOK)
	s.logger.Info(ctx, "deleted unpublished file", logger.String("file_id", fileID))
}

func (s *Service) exportFailed(ctx context.Context, ee *ExportError) error {
	s.exportFailures.Add(1)
	metrics.RecordExport(metrics.OutcomeFailure, string(ee.Kind))
	s.logger.Warn(ctx, "export failed",
		logger.String("kind", string(ee.Kind)),
		logger.Error(ee.Err),
	)
	return ee
}

// ExportEnabled reports whether a file store is configured.
func (s *Service) ExportEnabled() bool { return s.store != nil }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"runs":                 s.runs.Load(),
		"runFailures":          s.runFailures.Load(),
		"comparablesDegraded":  s.degraded.Load(),
		"exports":              s.exports.Load(),
		"exportFailures":       s.exportFailures.Load(),
		"exportEnabled":        s.ExportEnabled(),
		"stageTimeoutSeconds":  s.stageTimeout.Seconds(),
		"exportTimeoutSeconds": s.exportTimeout.Seconds(),
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
