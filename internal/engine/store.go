package engine

import (
	"sort"
	"time"
)

// Record is one sale.
type Record struct {
	Brand        string
	Model        string
	FuelType     string
	Mileage      int
	Year         int
	Price        float64
	Discount     float64
	Tax          float64
	EngineSize   float64
	SafetyRating float64
	Location     string
	SaleDate     time.Time
	SaleMonth    time.Time
}

// Table is the canonical dataset. It is never mutated after Load returns,
// so it can be shared across goroutines without locking.
type Table struct {
	records []Record

	// Sorted distinct values (ID -> string)
	brandDict    []string
	fuelDict     []string
	locationDict []string

	// First rows of the source as read, header first.
	preview [][]string
}

// NewTable builds a table from records in source order.
func NewTable(records []Record) *Table {
	t := &Table{records: records}
	t.brandDict = distinct(records, func(r *Record) string { return r.Brand })
	t.fuelDict = distinct(records, func(r *Record) string { return r.FuelType })
	t.locationDict = distinct(records, func(r *Record) string { return r.Location })
	return t
}

func (t *Table) Len() int { return len(t.records) }

// Record returns a copy of row i.
func (t *Table) Record(i int) Record { return t.records[i] }

// Preview returns the first raw rows kept at load time, header first.
func (t *Table) Preview() [][]string {
	out := make([][]string, len(t.preview))
	for i, row := range t.preview {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func (t *Table) Brands() []string    { return append([]string(nil), t.brandDict...) }
func (t *Table) FuelTypes() []string { return append([]string(nil), t.fuelDict...) }
func (t *Table) Locations() []string { return append([]string(nil), t.locationDict...) }

// All returns a view over every row.
func (t *Table) All() View {
	idx := make([]int, len(t.records))
	for i := range idx {
		idx[i] = i
	}
	return View{table: t, indices: idx}
}

// Field names a numeric column.
type Field string

const (
	FieldMileage      Field = "Mileage"
	FieldYear         Field = "Year"
	FieldPrice        Field = "Price"
	FieldDiscount     Field = "Discount"
	FieldTax          Field = "Tax"
	FieldEngineSize   Field = "Engine Size"
	FieldSafetyRating Field = "Safety Rating"
)

// CorrelationFields is the fixed heatmap axis, in display order.
var CorrelationFields = []Field{
	FieldMileage, FieldYear, FieldPrice, FieldDiscount, FieldTax, FieldEngineSize, FieldSafetyRating,
}

// Value reads a numeric field. Unknown fields read as zero.
func (r *Record) Value(f Field) float64 {
	switch f {
	case FieldMileage:
		return float64(r.Mileage)
	case FieldYear:
		return float64(r.Year)
	case FieldPrice:
		return r.Price
	case FieldDiscount:
		return r.Discount
	case FieldTax:
		return r.Tax
	case FieldEngineSize:
		return r.EngineSize
	case FieldSafetyRating:
		return r.SafetyRating
	}
	return 0
}

// Category names a string column.
type Category string

const (
	CategoryBrand    Category = "Brand"
	CategoryModel    Category = "Model"
	CategoryFuelType Category = "Fuel Type"
	CategoryLocation Category = "Location"
)

func (r *Record) Label(c Category) string {
	switch c {
	case CategoryBrand:
		return r.Brand
	case CategoryModel:
		return r.Model
	case CategoryFuelType:
		return r.FuelType
	case CategoryLocation:
		return r.Location
	}
	return ""
}

func distinct(records []Record, key func(*Record) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 16)
	for i := range records {
		k := key(&records[i])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
