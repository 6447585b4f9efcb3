// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validation errors for inbound property attributes.
var (
	ErrInvalidAttributes = errors.New("invalid property attributes")
	ErrInvalidArea       = errors.New("usable area must be a positive finite number")
)

// Address is the structured street address used for geocoding.
type Address struct {
	State        string `json:"estado"`
	Neighborhood string `json:"bairro"`
	Street       string `json:"logradouro"`
	Number       string `json:"numero"`
	City         string `json:"cidade"`
}

// Line renders the address as a single line the geocoder understands.
func (a Address) Line() string {
	return strings.Join([]string{a.Street, a.Number, a.Neighborhood, a.City, a.State, "BR"}, ", ")
}

// PropertyAttributes is the valuation request as submitted by a client.
// JSON names follow the form posted by the web page.
type PropertyAttributes struct {
	UsableArea       float64 `json:"areautil"`
	ConstructionYear int     `json:"anoconstrucao"`
	Bathrooms        int     `json:"banheiros"`
	Bedrooms         int     `json:"dormitorio"`
	Suites           int     `json:"suites"`
	ParkingSpaces    int     `json:"vagas"`
	PropertyType     string  `json:"tipoimovel"`
	TransactionType  string  `json:"tipotransacao"`
	PostalCode       string  `json:"cep"`
	Address
}

// Validate checks the fields the pipeline multiplies with. Counts and codes
// are passed through to the provider as given.
func (p PropertyAttributes) Validate() error {
	if math.IsNaN(p.UsableArea) || math.IsInf(p.UsableArea, 0) || p.UsableArea <= 0 {
		return fmt.Errorf("%w: %w (got %v)", ErrInvalidAttributes, ErrInvalidArea, p.UsableArea)
	}
	return nil
}

// Coordinates is a resolved geographic point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ValuationInput is the merged attribute and coordinate payload sent to the
// valuation provider for both the estimate and the comparables calls.
type ValuationInput struct {
	UsableArea       float64 `json:"area_util"`
	ConstructionYear int     `json:"ano_construcao"`
	Bathrooms        int     `json:"banheiros"`
	Bedrooms         int     `json:"dormitorios"`
	Suites           int     `json:"suites"`
	PropertyType     string  `json:"tipo_imovel"`
	TransactionType  string  `json:"tipo_transacao"`
	ParkingSpaces    int     `json:"vagas"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// NewValuationInput merges the attributes with the resolved coordinates.
func NewValuationInput(p PropertyAttributes, c Coordinates) ValuationInput {
	return ValuationInput{
		UsableArea:       p.UsableArea,
		ConstructionYear: p.ConstructionYear,
		Bathrooms:        p.Bathrooms,
		Bedrooms:         p.Bedrooms,
		Suites:           p.Suites,
		PropertyType:     p.PropertyType,
		TransactionType:  p.TransactionType,
		ParkingSpaces:    p.ParkingSpaces,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
	}
}
