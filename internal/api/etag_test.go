package api

import (
	"testing"
	"time"

	"carsales/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestChartETag(t *testing.T) {
	loaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := chartETag("tab-price", models.ChartFilters{FuelTypes: []string{"Petrol", "Diesel"}}, loaded)

	assert.Equal(t, base, chartETag("tab-price", models.ChartFilters{FuelTypes: []string{"Diesel", "Petrol"}}, loaded))
	assert.NotEqual(t, base, chartETag("tab-box", models.ChartFilters{FuelTypes: []string{"Petrol", "Diesel"}}, loaded))
	assert.NotEqual(t, base, chartETag("tab-price", models.ChartFilters{FuelTypes: []string{"Petrol", "Diesel"}}, loaded.Add(time.Second)))

	// Absent and empty fuel selections are different requests.
	assert.NotEqual(t,
		chartETag("tab-price", models.ChartFilters{}, loaded),
		chartETag("tab-price", models.ChartFilters{FuelTypes: []string{}}, loaded))
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}
