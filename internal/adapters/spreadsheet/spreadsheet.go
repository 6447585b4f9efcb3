// Package spreadsheet renders a valuation report as an xlsx workbook with
// three fixed sections: property characteristics, property values and
// similar properties.
package spreadsheet

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okian/appraisal/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

// MIMEType is the content type of the rendered workbook.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	currencyFormat = "R$#,##0.00"
	bannerColor    = "447EFF"
	maxSheetName   = 31
	defaultSheet   = "Sheet1"

	bannerCharacteristics = "Características do imóvel"
	bannerValues          = "Valores do imóvel"
	bannerComparables     = "Imóveis semelhantes"

	rowCharacteristics = 1
	rowValues          = 5
	rowComparables     = 9
)

var (
	characteristicsHeader = []string{
		"CEP", "Endereço", "Ano do imóvel", "Tipo do imóvel", "Área do imóvel", "Quartos",
		"Banheiros", "Suítes", "Vagas", "Número de vizinhos", "Latitude", "Longitude",
	}
	valuesHeader = []string{
		"Preço do imóvel", "Preço M² do imóvel", "Valor mínimo", "Valor central", "Valor máximo",
		"Valor metro² mínimo", "Valor metro² central", "Valor metro² máximo",
	}
	comparablesHeader = []string{
		"CEP", "Endereço", "Ano", "Tipo", "Área", "Preço", "Preço M²", "Quartos", "Banheiros",
		"Suítes", "Vagas",
	}
	// 1-based columns of the comparables table that hold money.
	comparablesCurrencyCols = []int{6, 7}
)

// ErrEmptyTitle is returned when no title is given.
var ErrEmptyTitle = errors.New("spreadsheet: empty title")

// FileName is the name the workbook is stored under.
func FileName(title string) string { return title + ".xlsx" }

// SheetName is the worksheet name for title, reduced to the characters and
// length a worksheet name allows.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, title+" excel")
	name = strings.Trim(name, "' ")
	if utf8.RuneCountInString(name) > maxSheetName {
		name = strings.TrimRight(string([]rune(name)[:maxSheetName]), "' ")
	}
	if name == "" {
		return "excel"
	}
	return name
}

// Renderer renders reports. The zero value is ready to use.
type Renderer struct{}

// Render implements the export renderer port.
func (Renderer) Render(r model.ValuationReport, title string) ([]byte, error) {
	return Render(r, title)
}

// Render builds the workbook for r and returns the encoded bytes.
func Render(r model.ValuationReport, title string) ([]byte, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SheetName(title)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w, err := newSheetWriter(f, sheet)
	if err != nil {
		return nil, err
	}

	// Characteristics.
	w.banner(rowCharacteristics, bannerCharacteristics, len(characteristicsHeader))
	w.row(rowCharacteristics+1, w.header, toAny(characteristicsHeader)...)
	w.row(rowCharacteristics+2, 0,
		r.PostalCode, r.Street, r.ConstructionYear, r.PropertyType, r.UsableArea, r.Bedrooms,
		r.Bathrooms, r.Suites, r.ParkingSpaces, r.Neighbors, r.Latitude, r.Longitude,
	)

	// Values.
	w.banner(rowValues, bannerValues, len(valuesHeader))
	w.row(rowValues+1, w.header, toAny(valuesHeader)...)
	w.row(rowValues+2, w.currency,
		r.TotalCentral, r.UnitCentral, r.TotalMin, r.TotalCentral, r.TotalMax,
		r.UnitMin, r.UnitCentral, r.UnitMax,
	)

	// Similar properties.
	w.banner(rowComparables, bannerComparables, len(comparablesHeader))
	w.row(rowComparables+1, w.header, toAny(comparablesHeader)...)
	for i, c := range r.Comparables {
		row := rowComparables + 2 + i
		w.row(row, 0,
			c.PostalCode, c.Address, c.ConstructionYear, c.PropertyType, c.UsableArea,
			c.Price, c.PricePerArea, c.Bedrooms, c.Bathrooms, c.Suites, c.ParkingSpaces,
		)
		for _, col := range comparablesCurrencyCols {
			w.style(col, row, col, row, w.currency)
		}
	}

	w.widths(len(characteristicsHeader))
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the layout code reads top to bottom.
type sheetWriter struct {
	f        *excelize.File
	sheet    string
	banners  int
	header   int
	currency int
	err      error
}

func newSheetWriter(f *excelize.File, sheet string) (*sheetWriter, error) {
	w := &sheetWriter{f: f, sheet: sheet}
	var err error

	format := currencyFormat
	if w.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
		return nil, fmt.Errorf("currency style: %w", err)
	}
	if w.banners, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{bannerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return nil, fmt.Errorf("banner style: %w", err)
	}
	if w.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	}); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	return w, nil
}

func (w *sheetWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

func (w *sheetWriter) banner(row int, text string, span int) {
	if w.err != nil {
		return
	}
	first, last := w.cell(1, row), w.cell(span, row)
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, first, text); err != nil {
		w.err = err
		return
	}
	if err := w.f.MergeCell(w.sheet, first, last); err != nil {
		w.err = err
		return
	}
	w.style(1, row, span, row, w.banners)
}

// row writes values from column 1; a non-zero style applies to the whole row.
func (w *sheetWriter) row(row, style int, values ...any) {
	for i, v := range values {
		if w.err != nil {
			return
		}
		if err := w.f.SetCellValue(w.sheet, w.cell(i+1, row), v); err != nil {
			w.err = err
			return
		}
	}
	if style != 0 && len(values) > 0 {
		w.style(1, row, len(values), row, style)
	}
}

func (w *sheetWriter) style(c1, r1, c2, r2, style int) {
	if w.err != nil {
		return
	}
	from, to := w.cell(c1, r1), w.cell(c2, r2)
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, style); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) widths(cols int) {
	if w.err != nil {
		return
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetColWidth(w.sheet, "A", last, 18); err != nil {
		w.err = err
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
