package engine

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// View is an ordered subset of a Table, held as row indices (no data copy).
type View struct {
	table   *Table
	indices []int
}

func (v View) Len() int { return len(v.indices) }

// At returns the i-th row of the view.
func (v View) At(i int) *Record { return &v.table.records[v.indices[i]] }

// Indices returns the table row numbers backing the view.
func (v View) Indices() []int { return append([]int(nil), v.indices...) }

// Range is an inclusive [Min, Max] interval.
type Range[T constraints.Integer | constraints.Float] struct {
	Min T
	Max T
}

func (r Range[T]) Contains(x T) bool { return x >= r.Min && x <= r.Max }

// Predicates is the fixed conjunction of filters the dashboard supports.
// Nil pointers and empty strings mean "no restriction". FuelTypes follows
// checklist semantics: nil is no restriction, a non-nil empty slice matches nothing.
type Predicates struct {
	Brand     string
	Location  string
	FuelTypes []string
	Mileage   *Range[int]
	Year      *Range[int]
	Price     *Range[float64]
}

// InvalidRangeError reports a range whose lower bound exceeds its upper bound.
type InvalidRangeError struct {
	Field string
	Min   float64
	Max   float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid %s range: min %g is greater than max %g", e.Field, e.Min, e.Max)
}

// Validate checks every range once.
func (p Predicates) Validate() error {
	if p.Mileage != nil && p.Mileage.Min > p.Mileage.Max {
		return &InvalidRangeError{Field: "mileage", Min: float64(p.Mileage.Min), Max: float64(p.Mileage.Max)}
	}
	if p.Year != nil && p.Year.Min > p.Year.Max {
		return &InvalidRangeError{Field: "year", Min: float64(p.Year.Min), Max: float64(p.Year.Max)}
	}
	if p.Price != nil && p.Price.Min > p.Price.Max {
		return &InvalidRangeError{Field: "price", Min: p.Price.Min, Max: p.Price.Max}
	}
	return nil
}

// Apply filters the whole table.
func Apply(t *Table, p Predicates) (View, error) {
	return t.All().Apply(p)
}

// Apply returns the rows of v matching every predicate, in order.
// Single pass: each row is checked against all predicates before moving on.
func (v View) Apply(p Predicates) (View, error) {
	if err := p.Validate(); err != nil {
		return View{}, err
	}

	var fuels map[string]struct{}
	if p.FuelTypes != nil {
		fuels = make(map[string]struct{}, len(p.FuelTypes))
		for _, f := range p.FuelTypes {
			fuels[f] = struct{}{}
		}
	}

	out := make([]int, 0, len(v.indices))
	for _, idx := range v.indices {
		r := &v.table.records[idx]
		if p.Brand != "" && r.Brand != p.Brand {
			continue
		}
		if p.Location != "" && r.Location != p.Location {
			continue
		}
		if fuels != nil {
			if _, ok := fuels[r.FuelType]; !ok {
				continue
			}
		}
		if p.Mileage != nil && !p.Mileage.Contains(r.Mileage) {
			continue
		}
		if p.Year != nil && !p.Year.Contains(r.Year) {
			continue
		}
		if p.Price != nil && !p.Price.Contains(r.Price) {
			continue
		}
		out = append(out, idx)
	}
	return View{table: v.table, indices: out}, nil
}
