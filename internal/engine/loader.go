package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// ParseError reports input the loader cannot turn into a Record.
// Row is 1-based and counts the header, so it matches spreadsheet line numbers.
// Row 0 means the problem is with the file or its header.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		if e.Column != "" {
			return fmt.Sprintf("parse dataset: column %q: %v", e.Column, e.Err)
		}
		return fmt.Sprintf("parse dataset: %v", e.Err)
	}
	return fmt.Sprintf("parse dataset: row %d, column %q, value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissingColumn = errors.New("required column not found in header")
	errNoHeader      = errors.New("no header row")
)

// Canonical column keys, matched against normalised header names.
const (
	colBrand        = "brand"
	colModel        = "model"
	colFuelType     = "fuel type"
	colMileage      = "mileage"
	colYear         = "year"
	colPrice        = "price"
	colDiscount     = "discount"
	colTax          = "tax"
	colEngineSize   = "engine size"
	colSafetyRating = "safety rating"
	colLocation     = "location"
	colSaleDate     = "sale date"
)

var requiredColumns = []string{
	colBrand, colModel, colFuelType, colMileage, colYear, colPrice,
	colDiscount, colTax, colEngineSize, colSafetyRating, colLocation, colSaleDate,
}

// Locale-independent layouts accepted for the sale date.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02"}

type loadConfig struct {
	delimiter   rune
	sheet       string
	previewRows int
	workers     int
	logger      *slog.Logger
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithDelimiter sets the field separator for delimited text sources.
func WithDelimiter(d rune) LoadOption {
	return func(c *loadConfig) {
		if d != 0 {
			c.delimiter = d
		}
	}
}

// WithSheet selects a workbook sheet by name. Default is the first sheet.
func WithSheet(name string) LoadOption {
	return func(c *loadConfig) { c.sheet = name }
}

// WithPreviewRows sets how many raw rows are kept for the overview table.
func WithPreviewRows(n int) LoadOption {
	return func(c *loadConfig) {
		if n >= 0 {
			c.previewRows = n
		}
	}
}

// WithWorkers caps the number of parsing goroutines.
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) LoadOption {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func applyLoadOptions(opts []LoadOption) *loadConfig {
	cfg := &loadConfig{
		delimiter:   ',',
		previewRows: 5,
		workers:     runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads the dataset at path. Files ending in .xlsx are read as workbooks,
// anything else as delimited text with a header row.
func Load(path string, opts ...LoadOption) (*Table, error) {
	cfg := applyLoadOptions(opts)
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readWorkbook(path, cfg.sheet)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open dataset: %w", openErr)
		}
		defer f.Close()
		rows, err = readDelimited(f, cfg)
	}
	if err != nil {
		return nil, err
	}

	t, err := fromRecords(rows, cfg)
	if err != nil {
		return nil, err
	}
	cfg.logger.Info("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return t, nil
}

// LoadReader reads delimited text from r.
func LoadReader(r io.Reader, opts ...LoadOption) (*Table, error) {
	cfg := applyLoadOptions(opts)
	rows, err := readDelimited(r, cfg)
	if err != nil {
		return nil, err
	}
	return fromRecords(rows, cfg)
}

// readDelimited tokenises the source the same way dataframe.ReadCSV does, so
// a header-only file can be told apart before the frame is built.
func readDelimited(r io.Reader, cfg *loadConfig) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = cfg.delimiter
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Err: errNoHeader}
	}
	return rows, nil
}

// fromRecords builds the table from a header row plus data rows. Cells are
// kept verbatim: "NA" is a value, not a missing marker.
func fromRecords(rows [][]string, cfg *loadConfig) (*Table, error) {
	if len(rows) == 0 {
		return nil, &ParseError{Err: errNoHeader}
	}
	if len(rows) == 1 {
		if _, err := headerColumns(rows[0]); err != nil {
			return nil, err
		}
		return NewTable(nil), nil
	}
	return fromFrame(dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	), cfg)
}

// headerColumns maps canonical keys to source column names, first match wins.
func headerColumns(header []string) (map[string]string, error) {
	names := make(map[string]string)
	for _, name := range header {
		key := normalizeHeader(name)
		if _, dup := names[key]; !dup {
			names[key] = name
		}
	}
	for _, key := range requiredColumns {
		if _, ok := names[key]; !ok {
			return nil, &ParseError{Column: key, Err: errMissingColumn}
		}
	}
	return names, nil
}

// readWorkbook returns the rows of one sheet, padded to the header width.
func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &ParseError{Err: fmt.Errorf("workbook %s has no sheets", filepath.Base(path))}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("sheet %q is empty", sheet)}
	}

	width := len(rows[0])
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(row) > width {
			row = row[:width]
		}
		for len(row) < width {
			row = append(row, "")
		}
		out = append(out, row)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// fromFrame converts the string-typed frame into records, in parallel chunks.
func fromFrame(df dataframe.DataFrame, cfg *loadConfig) (*Table, error) {
	if df.Err != nil {
		return nil, &ParseError{Err: df.Err}
	}

	names, err := headerColumns(df.Names())
	if err != nil {
		return nil, err
	}
	cols := make(map[string][]string, len(requiredColumns))
	for _, key := range requiredColumns {
		cols[key] = df.Col(names[key]).Records()
	}

	n := df.Nrow()
	records := make([]Record, n)

	numWorkers := cfg.workers
	if numWorkers > n {
		numWorkers = n
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunkSize := (n + numWorkers - 1) / numWorkers
	errs := make([]error, numWorkers)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		s := w * chunkSize
		e := min(s+chunkSize, n)
		if s >= e {
			continue
		}
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := parseRow(cols, names, i, &records[i]); err != nil {
					errs[w] = err
					return
				}
			}
		}(w, s, e)
	}
	wg.Wait()

	// Chunks are in row order, so the first error is the earliest bad row.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	t := NewTable(records)
	if cfg.previewRows > 0 && n > 0 {
		idx := make([]int, min(cfg.previewRows, n))
		for i := range idx {
			idx[i] = i
		}
		t.preview = df.Subset(idx).Records()
	}
	return t, nil
}

var errNegative = errors.New("must not be negative")

// parseRow fills r from row i. headers maps canonical keys to source column names.
func parseRow(cols map[string][]string, headers map[string]string, i int, r *Record) error {
	fail := func(key string, err error) error {
		return &ParseError{Row: i + 2, Column: headers[key], Value: cols[key][i], Err: err}
	}
	decimal := func(key string, dst *float64, nonNegative bool) error {
		v, err := parseDecimal(cols[key][i])
		if err != nil {
			return fail(key, err)
		}
		if nonNegative && v < 0 {
			return fail(key, errNegative)
		}
		*dst = v
		return nil
	}

	r.Brand = strings.TrimSpace(cols[colBrand][i])
	r.Model = strings.TrimSpace(cols[colModel][i])
	r.FuelType = strings.TrimSpace(cols[colFuelType][i])
	r.Location = strings.TrimSpace(cols[colLocation][i])

	var err error
	if r.Mileage, err = parseWhole(cols[colMileage][i]); err != nil {
		return fail(colMileage, err)
	}
	if r.Mileage < 0 {
		return fail(colMileage, errNegative)
	}
	if r.Year, err = parseWhole(cols[colYear][i]); err != nil {
		return fail(colYear, err)
	}
	if err := decimal(colPrice, &r.Price, true); err != nil {
		return err
	}
	if err := decimal(colDiscount, &r.Discount, true); err != nil {
		return err
	}
	if err := decimal(colTax, &r.Tax, true); err != nil {
		return err
	}
	if err := decimal(colEngineSize, &r.EngineSize, false); err != nil {
		return err
	}
	if err := decimal(colSafetyRating, &r.SafetyRating, false); err != nil {
		return err
	}
	if r.SaleDate, err = parseDate(cols[colSaleDate][i]); err != nil {
		return fail(colSaleDate, err)
	}
	r.SaleMonth = monthOf(r.SaleDate)
	return nil
}

var unitSuffix = regexp.MustCompile(`^(.*?)\s*[\(\[][^\)\]]*[\)\]]\s*$`)

// normalizeHeader maps "Price (USD)", "fuel_type" and "Engine Size [L]"
// to their canonical keys.
func normalizeHeader(name string) string {
	s := strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	if m := unitSuffix.FindStringSubmatch(s); len(m) == 2 && m[1] != "" {
		s = m[1]
	}
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func parseWhole(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.New("not a whole number")
	}
	return int(f), nil
}

func parseDecimal(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date")
}

// monthOf truncates a date to the first day of its month.
func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
