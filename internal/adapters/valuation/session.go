package valuation

import (
	"context"

	"github.com/okian/appraisal/internal/domain/model"
)

// Provider is the subset of Client a Session needs.
type Provider interface {
	Authenticate(ctx context.Context) (Token, error)
	Estimate(ctx context.Context, token Token, in model.ValuationInput) (model.ValuationRange, error)
	Comparables(ctx context.Context, token Token, in model.ValuationInput) ([]model.ComparableListing, error)
}

// Session binds one token to one pipeline run. It authenticates exactly once
// and never refreshes: a rejected token surfaces as an upstream error.
type Session struct {
	provider Provider
	token    Token
}

// NewSession authenticates against the provider.
func NewSession(ctx context.Context, p Provider) (*Session, error) {
	token, err := p.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{provider: p, token: token}, nil
}

// Estimate requests the value range with the session token.
func (s *Session) Estimate(ctx context.Context, in model.ValuationInput) (model.ValuationRange, error) {
	return s.provider.Estimate(ctx, s.token, in)
}

// Comparables requests comparable listings with the session token.
func (s *Session) Comparables(ctx context.Context, in model.ValuationInput) ([]model.ComparableListing, error) {
	return s.provider.Comparables(ctx, s.token, in)
}
