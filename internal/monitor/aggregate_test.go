package monitor_test

import (
	"testing"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
	"github.com/roadwatch/datex-zone-monitor/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Incidents(t *testing.T) {
	records := []domain.Record{
		{ID: "a", Kind: domain.KindIncident, Category: domain.CategoryAccident, Severity: "high", DistanceKM: 3.2, Description: "Accident: A-2 km 43.5"},
		{ID: "b", Kind: domain.KindIncident, Category: domain.CategoryAccident, Severity: "low", DistanceKM: 7.1},
		{ID: "c", Kind: domain.KindIncident, Category: domain.CategoryRoadworks, Severity: "medium", DistanceKM: 4.8},
	}

	stats := monitor.Aggregate(domain.KindIncident, records)

	assert.Equal(t, 3, stats.Total)
	require.NotNil(t, stats.NearestKM)
	assert.InDelta(t, 3.2, *stats.NearestKM, 1e-9)
	require.NotNil(t, stats.Nearest)
	assert.Equal(t, "a", stats.Nearest.ID)
	assert.Equal(t, "Accident: A-2 km 43.5", stats.Nearest.Description)

	assert.Equal(t, 2, stats.ByCategory["accident"])
	assert.Equal(t, 1, stats.ByCategory["roadworks"])
	// zero-valued buckets are present
	assert.Contains(t, stats.ByCategory, "congestion")
	assert.Equal(t, 0, stats.ByCategory["congestion"])
	assert.Contains(t, stats.ByCategory, "special-event")
	assert.Contains(t, stats.ByCategory, "other")

	assert.Equal(t, map[string]int{"high": 1, "medium": 1, "low": 1}, stats.BySeverity)
	assert.Equal(t, "high", stats.MostSevere)
}

func TestAggregate_EmptySet(t *testing.T) {
	stats := monitor.Aggregate(domain.KindCharging, nil)

	assert.Equal(t, 0, stats.Total)
	assert.Nil(t, stats.NearestKM)
	assert.Nil(t, stats.Nearest)
	assert.Empty(t, stats.MostSevere)

	for _, cat := range domain.ChargingCategories() {
		assert.Equal(t, 0, stats.ByCategory[string(cat)])
	}
}

func TestAggregate_ChargingBuckets(t *testing.T) {
	kw := func(v float64) *float64 { return &v }
	records := []domain.Record{
		{ID: "s1", Kind: domain.KindCharging, Category: domain.CategoryUltra, PowerKW: kw(250), DistanceKM: 12.0},
		{ID: "s2", Kind: domain.KindCharging, Category: domain.CategoryFast, PowerKW: kw(50), DistanceKM: 2.5},
		{ID: "s3", Kind: domain.KindCharging, Category: domain.CategoryUnknown, DistanceKM: 5.0},
	}

	stats := monitor.Aggregate(domain.KindCharging, records)

	assert.Equal(t, 1, stats.ByCategory["ultra"])
	assert.Equal(t, 1, stats.ByCategory["fast"])
	assert.Equal(t, 1, stats.ByCategory["unknown"])
	assert.Equal(t, 0, stats.ByCategory["slow"])
	assert.Equal(t, 0, stats.ByCategory["rapid"])

	require.NotNil(t, stats.Nearest)
	assert.Equal(t, "s2", stats.Nearest.ID)
	// charging sets carry no severity
	assert.Nil(t, stats.BySeverity)
	assert.Empty(t, stats.MostSevere)
}
