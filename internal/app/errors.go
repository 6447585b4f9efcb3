package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/appraisal/internal/adapters/geocoder"
	"github.com/okian/appraisal/internal/adapters/valuation"
	"github.com/okian/appraisal/internal/domain/model"
)

// ErrorKind is the coarse classification of a failure, used for HTTP status
// mapping and metric labels.
type ErrorKind string

// Error kinds.
const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindUnavailable  ErrorKind = "unavailable"
	KindUpstream     ErrorKind = "upstream"
	KindTimeout      ErrorKind = "timeout"
	KindCanceled     ErrorKind = "canceled"
	KindUpload       ErrorKind = "upload"
	KindPermission   ErrorKind = "permission"
	KindRender       ErrorKind = "render"
	KindInternal     ErrorKind = "internal"
)

// Sentinel errors for the service.
var (
	ErrServiceNotConfigured = errors.New("valuation service is missing a geocoder or valuation provider")
	ErrExportNotConfigured  = errors.New("export is not configured")
	ErrUntitledReport       = errors.New("report has neither a postal code nor a street")
)

// PipelineError is the first hard failure of a valuation run.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("valuation failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Kind classifies the underlying failure.
func (e *PipelineError) Kind() ErrorKind { return KindOf(e.Err) }

// ExportError is a failed export. FileID is set when a file had already been
// created when the failure happened.
type ExportError struct {
	Kind   ErrorKind
	FileID string
	Err    error
}

func (e *ExportError) Error() string {
	if e.FileID != "" {
		return fmt.Sprintf("export %s failed (file %s): %v", e.Kind, e.FileID, e.Err)
	}
	return fmt.Sprintf("export %s failed: %v", e.Kind, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// KindOf maps any error returned by the service to an ErrorKind. It returns
// the empty kind for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Kind
	}

	switch {
	case errors.Is(err, model.ErrInvalidAttributes), errors.Is(err, ErrUntitledReport):
		return KindInvalidInput
	case errors.Is(err, ErrServiceNotConfigured), errors.Is(err, ErrExportNotConfigured):
		return KindUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return KindTimeout
	}

	var ge *geocoder.GeocodeError
	if errors.As(err, &ge) {
		if ge.Kind == geocoder.KindNotFound {
			return KindNotFound
		}
		return KindUpstream
	}

	var ve *valuation.ValuationError
	if errors.As(err, &ve) {
		if ve.Kind == valuation.KindUnavailable {
			return KindUnavailable
		}
		return KindUpstream
	}

	return KindInternal
}
