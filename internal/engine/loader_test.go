package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `Brand,Model,Fuel Type,Mileage (km),Year,Price (USD),Discount,Tax,Engine Size (L),Safety Rating,Location,Sale Date
Acme,Roadster,Petrol,1000,2020,10000,500,1000,1.6,4,Lyon,2024-01-05
Bolt,Volt,Electric,40000,2018,25000.50,0,2500,0,5,Paris,2024-03-11
Acme,Hauler,Diesel,90000,2015,7000,200,700,2.2,3,Lyon,2024-01-20
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTemp(t, "sales.csv", sampleCSV)

	tbl, err := Load(path, WithWorkers(2))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	r := tbl.Record(1)
	assert.Equal(t, "Bolt", r.Brand)
	assert.Equal(t, "Volt", r.Model)
	assert.Equal(t, "Electric", r.FuelType)
	assert.Equal(t, 40000, r.Mileage)
	assert.Equal(t, 2018, r.Year)
	assert.InDelta(t, 25000.50, r.Price, 1e-9)
	assert.InDelta(t, 2500.0, r.Tax, 1e-9)
	assert.Equal(t, 5.0, r.SafetyRating)
	assert.Equal(t, "Paris", r.Location)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.SaleMonth)

	// Source order is kept.
	assert.Equal(t, "Roadster", tbl.Record(0).Model)
	assert.Equal(t, "Hauler", tbl.Record(2).Model)

	assert.Equal(t, []string{"Acme", "Bolt"}, tbl.Brands())
	assert.Equal(t, []string{"Diesel", "Electric", "Petrol"}, tbl.FuelTypes())
	assert.Equal(t, []string{"Lyon", "Paris"}, tbl.Locations())
}

func TestLoadPreviewKeepsRawRows(t *testing.T) {
	tbl, err := LoadReader(strings.NewReader(sampleCSV), WithPreviewRows(2))
	require.NoError(t, err)

	preview := tbl.Preview()
	require.Len(t, preview, 3)
	assert.Equal(t, "Mileage (km)", preview[0][3])
	assert.Equal(t, "25000.50", preview[2][5])
}

func TestLoadSemicolonDelimiter(t *testing.T) {
	src := strings.ReplaceAll(sampleCSV, ",", ";")
	tbl, err := LoadReader(strings.NewReader(src), WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}

// writeWorkbook stores a comma-separated source as the first sheet of a new workbook.
func writeWorkbook(t *testing.T, src string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	lines := strings.Split(strings.TrimSpace(src), "\n")
	for i, line := range lines {
		cells := strings.Split(line, ",")
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	tbl, err := Load(writeWorkbook(t, sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "Hauler", tbl.Record(2).Model)
	assert.InDelta(t, 2.2, tbl.Record(2).EngineSize, 1e-9)
}

func TestLoadKeepsNAText(t *testing.T) {
	src := strings.Replace(sampleCSV, "Acme,Roadster,Petrol,1000,2020,10000,500,1000,1.6,4,Lyon",
		"Acme,NA,Petrol,1000,2020,10000,500,1000,1.6,4,NA", 1)

	tbl, err := LoadReader(strings.NewReader(src), WithPreviewRows(1))
	require.NoError(t, err)
	assert.Equal(t, "NA", tbl.Record(0).Model)
	assert.Equal(t, "NA", tbl.Record(0).Location)
	assert.Equal(t, "NA", tbl.Preview()[1][1])

	tbl, err = Load(writeWorkbook(t, src))
	require.NoError(t, err)
	assert.Equal(t, "NA", tbl.Record(0).Model)
	assert.Equal(t, "NA", tbl.Record(0).Location)
}

func TestLoadHeaderOnly(t *testing.T) {
	header := strings.SplitN(sampleCSV, "\n", 2)[0] + "\n"

	tbl, err := LoadReader(strings.NewReader(header))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Preview())

	tbl, err = Load(writeWorkbook(t, header))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	// The header is still checked.
	_, err = LoadReader(strings.NewReader("Brand,Model\n"))
	assert.ErrorIs(t, err, errMissingColumn)
}

func TestLoadEmptySource(t *testing.T) {
	_, err := LoadReader(strings.NewReader(""))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, errNoHeader)
}

func TestLoadMissingColumn(t *testing.T) {
	src := "Brand,Model\nAcme,Roadster\n"
	_, err := LoadReader(strings.NewReader(src))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.Row)
	assert.ErrorIs(t, err, errMissingColumn)
}

func TestLoadBadValueReportsRow(t *testing.T) {
	src := strings.Replace(sampleCSV, "Hauler,Diesel,90000", "Hauler,Diesel,lots", 1)
	_, err := LoadReader(strings.NewReader(src))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 4, perr.Row)
	assert.Equal(t, "Mileage (km)", perr.Column)
	assert.Equal(t, "lots", perr.Value)
}

func TestLoadRejectsNegativePrice(t *testing.T) {
	src := strings.Replace(sampleCSV, "2020,10000,", "2020,-10000,", 1)
	_, err := LoadReader(strings.NewReader(src))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Row)
	assert.ErrorIs(t, err, errNegative)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Price (USD)":      "price",
		"fuel_type":        "fuel type",
		"Engine Size [L]":  "engine size",
		"\ufeffBrand":      "brand",
		"  Safety  Rating": "safety rating",
		"Sale-Date":        "sale date",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHeader(in), in)
	}
}

func TestParseHelpers(t *testing.T) {
	n, err := parseWhole("2019.0")
	require.NoError(t, err)
	assert.Equal(t, 2019, n)

	_, err = parseWhole("2019.5")
	assert.Error(t, err)

	_, err = parseDecimal("NaN")
	assert.Error(t, err)

	d, err := parseDate("2024/02/29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), monthOf(d))

	_, err = parseDate("29.02.2024")
	assert.Error(t, err)
}
