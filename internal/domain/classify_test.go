package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIncident(t *testing.T) {
	tests := []struct {
		name       string
		recordType string
		expected   Category
	}{
		{"accident", "Accident", CategoryAccident},
		{"abnormal traffic", "AbnormalTraffic", CategoryCongestion},
		{"traffic element", "TrafficElement", CategoryCongestion},
		{"maintenance works", "MaintenanceWorks", CategoryRoadworks},
		{"lane management", "RoadOrCarriagewayOrLaneManagement", CategoryRoadworks},
		{"public event", "PublicEvent", CategorySpecialEvent},
		{"authority operation", "AuthorityOperation", CategorySpecialEvent},
		{"weather type falls through", "PoorEnvironmentConditions", CategoryOther},
		{"unrecognized", "SomeFutureRecordType", CategoryOther},
		{"empty", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyIncident(tt.recordType))
		})
	}
}

func TestClassifyCharging(t *testing.T) {
	kw := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		power    *float64
		expected Category
	}{
		{"missing power is unknown", nil, CategoryUnknown},
		{"home charger", kw(7.4), CategorySlow},
		{"boundary 22", kw(22), CategorySlow},
		{"semi fast", kw(43), CategoryFast},
		{"boundary 50", kw(50), CategoryFast},
		{"dc rapid", kw(100), CategoryRapid},
		{"boundary 150", kw(150), CategoryRapid},
		{"ultra", kw(350), CategoryUltra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyCharging(tt.power))
		})
	}
}

func TestClassify_EveryRecordGetsExactlyOneCategory(t *testing.T) {
	records := []Record{
		{ID: "a", Kind: KindIncident, Attrs: map[string]string{"record_type": "Accident"}},
		{ID: "b", Kind: KindIncident},
		{ID: "c", Kind: KindCharging},
		{ID: "d", Kind: KindCharging, PowerKW: func() *float64 { v := 151.0; return &v }()},
	}

	for _, rec := range records {
		out := Classify(rec)
		assert.NotEmpty(t, out.Category, "record %s", rec.ID)
		assert.Contains(t, Categories(rec.Kind), out.Category)
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"low", "low"},
		{"medium", "medium"},
		{"high", "high"},
		{"highest", "high"},
		{"veryHigh", "high"},
		{"", "low"},
		{"bogus", "low"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeSeverity(tt.raw), "raw=%q", tt.raw)
	}
}

func TestMoreSevere(t *testing.T) {
	assert.True(t, MoreSevere("high", "medium"))
	assert.True(t, MoreSevere("medium", "low"))
	assert.False(t, MoreSevere("low", "low"))
	assert.False(t, MoreSevere("low", "high"))
}
