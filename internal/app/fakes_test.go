package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/okian/appraisal/internal/adapters/valuation"
	"github.com/okian/appraisal/internal/domain/model"
)

type fakeGeocoder struct {
	calls  atomic.Int32
	coords model.Coordinates
	err    error
	block  bool
}

func (f *fakeGeocoder) Geocode(ctx context.Context, _ model.Address) (model.Coordinates, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return model.Coordinates{}, ctx.Err()
	}
	return f.coords, f.err
}

type fakeProvider struct {
	authCalls     atomic.Int32
	estimateCalls atomic.Int32
	compCalls     atomic.Int32

	authErr     error
	rng         model.ValuationRange
	estimateErr error
	comps       []model.ComparableListing
	compErr     error

	// blockComparables makes the comparables call wait for its context.
	blockComparables bool
	// blockEstimate does the same for the estimate call.
	blockEstimate bool
	// entered receives once per data call, if set.
	entered chan struct{}
	// estimated is closed when Estimate returns, if set.
	estimated chan struct{}

	mu     sync.Mutex
	tokens []valuation.Token
}

func (f *fakeProvider) Authenticate(context.Context) (valuation.Token, error) {
	f.authCalls.Add(1)
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tok-1", nil
}

func (f *fakeProvider) Estimate(ctx context.Context, token valuation.Token, _ model.ValuationInput) (model.ValuationRange, error) {
	f.estimateCalls.Add(1)
	f.record(token)
	f.enter()
	if f.blockEstimate {
		<-ctx.Done()
		return model.ValuationRange{}, ctx.Err()
	}
	if f.estimated != nil {
		defer close(f.estimated)
	}
	return f.rng, f.estimateErr
}

func (f *fakeProvider) Comparables(ctx context.Context, token valuation.Token, _ model.ValuationInput) ([]model.ComparableListing, error) {
	f.compCalls.Add(1)
	f.record(token)
	f.enter()
	if f.blockComparables {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.comps, f.compErr
}

func (f *fakeProvider) enter() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
}

func (f *fakeProvider) record(t valuation.Token) {
	f.mu.Lock()
	f.tokens = append(f.tokens, t)
	f.mu.Unlock()
}

type fakeRenderer struct {
	calls atomic.Int32
	title string
	err   error
}

func (f *fakeRenderer) Render(_ model.ValuationReport, title string) ([]byte, error) {
	f.calls.Add(1)
	f.title = title
	if f.err != nil {
		return nil, f.err
	}
	return []byte("xlsx"), nil
}

type fakeStore struct {
	creates atomic.Int32
	grants  atomic.Int32
	deletes atomic.Int32

	name      string
	mimeType  string
	content   string
	deletedID string

	createErr error
	grantErr  error
	deleteErr error
}

func (f *fakeStore) Create(_ context.Context, name, mimeType string, r io.Reader) (string, error) {
	f.creates.Add(1)
	if f.createErr != nil {
		return "", f.createErr
	}
	b, _ := io.ReadAll(r)
	f.name, f.mimeType, f.content = name, mimeType, string(b)
	return "file-1", nil
}

func (f *fakeStore) MakePublic(context.Context, string) error {
	f.grants.Add(1)
	return f.grantErr
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.deletes.Add(1)
	f.deletedID = id
	if ctx.Err() != nil {
		return errors.New("delete called with a done context")
	}
	return f.deleteErr
}
