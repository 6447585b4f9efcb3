package report_test

import (
	"testing"
	"time"

	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleAttributes() model.PropertyAttributes {
	return model.PropertyAttributes{
		UsableArea:       80,
		ConstructionYear: 2010,
		Bathrooms:        2,
		Bedrooms:         3,
		Suites:           1,
		ParkingSpaces:    1,
		PropertyType:     "apartamento",
		TransactionType:  "venda",
		PostalCode:       "01311000",
		Address: model.Address{
			State: "SP", Neighborhood: "Bela Vista", Street: "Av. Paulista", Number: "1000", City: "São Paulo",
		},
	}
}

func TestNormalize(t *testing.T) {
	Convey("Given attributes, coordinates, a range and comparables", t, func() {
		attrs := sampleAttributes()
		coords := model.Coordinates{Latitude: -23.56, Longitude: -46.65}
		rng := model.ValuationRange{Min: 8000, Central: 9000, Max: 10000, Neighbors: 12}
		comps := []model.ComparableListing{
			{Address: "Rua A", PostalCode: "01310000", Price: 700000, PricePerArea: 8750},
			{Address: "Rua B", PostalCode: "01312000", Price: 650000, PricePerArea: 8125},
		}
		now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		Convey("When normalized", func() {
			r := report.Normalize(attrs, coords, rng, comps, now)

			Convey("Then totals are unit values times usable area", func() {
				So(r.TotalMin, ShouldEqual, 640000.0)
				So(r.TotalCentral, ShouldEqual, 720000.0)
				So(r.TotalMax, ShouldEqual, 800000.0)
			})

			Convey("And unit values and neighbor count pass through", func() {
				So(r.UnitMin, ShouldEqual, 8000.0)
				So(r.UnitCentral, ShouldEqual, 9000.0)
				So(r.UnitMax, ShouldEqual, 10000.0)
				So(r.Neighbors, ShouldEqual, 12)
			})

			Convey("And display attributes and coordinates are copied", func() {
				So(r.Street, ShouldEqual, "Av. Paulista")
				So(r.PostalCode, ShouldEqual, "01311000")
				So(r.ConstructionYear, ShouldEqual, 2010)
				So(r.Bedrooms, ShouldEqual, 3)
				So(r.Latitude, ShouldEqual, -23.56)
				So(r.Longitude, ShouldEqual, -46.65)
				So(r.CreatedAt, ShouldEqual, now)
			})

			Convey("And comparables keep provider order without aliasing the input", func() {
				So(len(r.Comparables), ShouldEqual, 2)
				So(r.Comparables[0].Address, ShouldEqual, "Rua A")
				So(r.Comparables[1].Address, ShouldEqual, "Rua B")

				comps[0].Address = "changed"
				So(r.Comparables[0].Address, ShouldEqual, "Rua A")
			})
		})

		Convey("When normalized twice with different clocks", func() {
			a := report.Normalize(attrs, coords, rng, comps, now)
			b := report.Normalize(attrs, coords, rng, comps, now.Add(time.Hour))

			Convey("Then the reports differ only in the timestamp", func() {
				So(a.CreatedAt, ShouldNotEqual, b.CreatedAt)
				b.CreatedAt = a.CreatedAt
				So(b, ShouldResemble, a)
			})
		})

		Convey("When there are no comparables", func() {
			r := report.Normalize(attrs, coords, rng, nil, now)

			Convey("Then the sequence is empty, not nil", func() {
				So(r.Comparables, ShouldNotBeNil)
				So(len(r.Comparables), ShouldEqual, 0)
			})
		})
	})
}

func TestTotal(t *testing.T) {
	Convey("Given unit prices with cents", t, func() {
		Convey("Then the total carries no binary rounding noise", func() {
			So(report.Total(8000.1, 80), ShouldEqual, 640008.0)
			So(report.Total(0.1, 3), ShouldEqual, 0.3)
			So(report.Total(9123.45, 72.5), ShouldEqual, 661450.125)
		})
	})
}

func TestTitle(t *testing.T) {
	Convey("Given reports with and without a postal code", t, func() {
		Convey("When the postal code is present", func() {
			r := model.ValuationReport{PostalCode: "01311000", Street: "Av. Paulista"}
			So(report.Title(r), ShouldEqual, "01311000")
		})

		Convey("When the postal code is empty", func() {
			r := model.ValuationReport{PostalCode: "", Street: "Av. Paulista"}
			So(report.Title(r), ShouldEqual, "Av. Paulista")
		})

		Convey("When the postal code is blank", func() {
			r := model.ValuationReport{PostalCode: "   ", Street: "Av. Paulista"}
			So(report.Title(r), ShouldEqual, "Av. Paulista")
		})
	})
}

func TestNormalizer(t *testing.T) {
	Convey("Given a normalizer with a fixed clock", t, func() {
		fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		n := report.NewNormalizer(report.WithClock(func() time.Time { return fixed }))

		Convey("Then reports are stamped with that clock", func() {
			r := n.Normalize(sampleAttributes(), model.Coordinates{}, model.ValuationRange{Central: 1}, nil)
			So(r.CreatedAt, ShouldEqual, fixed)
			So(r.TotalCentral, ShouldEqual, 80.0)
		})

		Convey("And a nil clock option is ignored", func() {
			So(func() { report.NewNormalizer(report.WithClock(nil)).Normalize(sampleAttributes(), model.Coordinates{}, model.ValuationRange{}, nil) }, ShouldNotPanic)
		})
	})
}
