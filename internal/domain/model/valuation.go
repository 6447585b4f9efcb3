package model

import "time"

// ValuationRange is the provider's unit price estimate (per square metre).
type ValuationRange struct {
	Min       float64 `json:"min"`
	Central   float64 `json:"central"`
	Max       float64 `json:"max"`
	Neighbors int     `json:"num_vizinhos"`
}

// ComparableListing is a previously observed transaction near the property.
type ComparableListing struct {
	Address          string  `json:"endereco"`
	PostalCode       string  `json:"cep"`
	ConstructionYear int     `json:"ano_construcao"`
	PropertyType     string  `json:"tipo_imovel"`
	UsableArea       float64 `json:"area_util"`
	Price            float64 `json:"preco"`
	PricePerArea     float64 `json:"preco_metro"`
	Bedrooms         int     `json:"dormitorios"`
	Bathrooms        int     `json:"banheiros"`
	Suites           int     `json:"suites"`
	ParkingSpaces    int     `json:"vagas"`
}

// ValuationReport is the normalized record handed to callers and to export.
// The JSON form is returned by the valuation endpoint and accepted back by
// the export endpoint unchanged.
type ValuationReport struct {
	Street           string    `json:"end"`
	ConstructionYear int       `json:"ano"`
	PropertyType     string    `json:"tipo"`
	PostalCode       string    `json:"cep"`
	CreatedAt        time.Time `json:"data"`
	UsableArea       float64   `json:"area"`
	Bedrooms         int       `json:"quartos"`
	Bathrooms        int       `json:"banheiros"`
	ParkingSpaces    int       `json:"vagas"`
	Suites           int       `json:"suites"`

	TotalMin     float64 `json:"vmin"`
	TotalCentral float64 `json:"vcen"`
	TotalMax     float64 `json:"vmax"`
	UnitMin      float64 `json:"vqmin"`
	UnitCentral  float64 `json:"vqcen"`
	UnitMax      float64 `json:"vqmax"`
	Neighbors    int     `json:"numviz"`

	Comparables []ComparableListing `json:"bros"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// ValuationResult is what a valuation run returns to the caller: the
// normalized report plus the raw provider payloads it was built from.
type ValuationResult struct {
	Report      ValuationReport     `json:"excelobj"`
	Range       ValuationRange      `json:"avm"`
	Comparables []ComparableListing `json:"bros"`
}
