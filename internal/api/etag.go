package api

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"carsales/internal/models"

	"github.com/zeebo/xxh3"
)

const headerETag = "ETag"

// chartETag fingerprints a chart request against the loaded dataset.
// Equivalent filters hash equally: fuel order does not matter.
func chartETag(tab string, f models.ChartFilters, loadedAt time.Time) string {
	var b strings.Builder
	b.WriteString(tab)
	b.WriteByte(0)
	b.WriteString(f.Brand)
	b.WriteByte(0)
	b.WriteString(f.Location)
	b.WriteByte(0)
	if f.FuelTypes == nil {
		b.WriteString("*")
	} else {
		fuels := append([]string(nil), f.FuelTypes...)
		sort.Strings(fuels)
		b.WriteString(strings.Join(fuels, "\x1f"))
	}
	b.WriteByte(0)
	for _, v := range f.MileageRange {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	b.WriteByte(0)
	for _, v := range f.YearRange {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	b.WriteByte(0)
	for _, v := range f.PriceRange {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte(',')
	}
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(loadedAt.UnixNano(), 10))

	return `"` + strconv.FormatUint(xxh3.HashString(b.String()), 16) + `"`
}

// etagMatches implements the If-None-Match comparison, including "*".
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
