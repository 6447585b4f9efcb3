// Package report merges pipeline outputs into the normalized valuation report.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/appraisal/internal/domain/model"
)

// Normalize builds the report from the original attributes, the resolved
// coordinates, the provider's range and the comparables. It performs no I/O
// and reads no clock; the creation time is passed in.
func Normalize(
	attrs model.PropertyAttributes,
	coords model.Coordinates,
	rng model.ValuationRange,
	comparables []model.ComparableListing,
	now time.Time,
) model.ValuationReport {
	bros := make([]model.ComparableListing, len(comparables))
	copy(bros, comparables)

	return model.ValuationReport{
		Street:           attrs.Street,
		ConstructionYear: attrs.ConstructionYear,
		PropertyType:     attrs.PropertyType,
		PostalCode:       attrs.PostalCode,
		CreatedAt:        now,
		UsableArea:       attrs.UsableArea,
		Bedrooms:         attrs.Bedrooms,
		Bathrooms:        attrs.Bathrooms,
		ParkingSpaces:    attrs.ParkingSpaces,
		Suites:           attrs.Suites,

		TotalMin:     Total(rng.Min, attrs.UsableArea),
		TotalCentral: Total(rng.Central, attrs.UsableArea),
		TotalMax:     Total(rng.Max, attrs.UsableArea),
		UnitMin:      rng.Min,
		UnitCentral:  rng.Central,
		UnitMax:      rng.Max,
		Neighbors:    rng.Neighbors,

		Comparables: bros,

		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	}
}

// Total multiplies a unit price by an area in decimal arithmetic so that
// prices with cents do not pick up binary rounding noise.
func Total(unit, area float64) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromFloat(area)).InexactFloat64()
}

// Title picks the export title: the postal code when present, otherwise the
// street address.
func Title(r model.ValuationReport) string {
	if cep := strings.TrimSpace(r.PostalCode); cep != "" {
		return cep
	}
	return r.Street
}

// Normalizer binds Normalize to a clock.
type Normalizer struct {
	now func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the time source used for the creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a Normalizer using the wall clock unless overridden.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize stamps the report with the normalizer's clock.
func (n *Normalizer) Normalize(
	attrs model.PropertyAttributes,
	coords model.Coordinates,
	rng model.ValuationRange,
	comparables []model.ComparableListing,
) model.ValuationReport {
	return Normalize(attrs, coords, rng, comparables, n.now())
}
