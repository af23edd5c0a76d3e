package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roadwatch/datex-zone-monitor/internal/config"
	"github.com/roadwatch/datex-zone-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
service:
  http_addr: ":9090"
  log_level: debug
  log_format: text
  shutdown_timeout: 5s
  fetch_timeout: 20s
  cache_ttl: 2m
kafka:
  brokers: ["localhost:9092"]
  topic: traffic-cycles
zones:
  - name: home-traffic
    kind: incident
    feed_url: https://nap.example/datex/incidents.xml
    radius_km: 30
    interval: 5m
    update_epsilon_km: 0.2
    reference:
      lat: 40.4168
      lon: -3.7038
  - name: car-charging
    kind: charging-point
    feed_url: https://nap.example/datex/charging.xml
    reference:
      source: person
      entity_id: person.ana
`

func TestParse_FullDocument(t *testing.T) {
	cfg, err := config.Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Service.HTTPAddr)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, 20*time.Second, cfg.Service.FetchTimeout.Std())
	assert.Equal(t, 2*time.Minute, cfg.Service.CacheTTL.Std())

	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "traffic-cycles", cfg.Kafka.Topic)

	require.Len(t, cfg.Zones, 2)
	traffic := cfg.Zones[0]
	assert.Equal(t, 30.0, traffic.RadiusKM)
	assert.Equal(t, 5*time.Minute, traffic.Interval.Std())
	assert.Equal(t, 0.2, traffic.UpdateEpsilonKM)
	assert.Equal(t, "static", traffic.Reference.Source)

	charging := cfg.Zones[1]
	assert.Equal(t, "person", charging.Reference.Source)
	assert.Equal(t, "person.ana", charging.Reference.EntityID)
}

func TestParse_Defaults(t *testing.T) {
	doc := `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
    reference: {lat: 40.0, lon: -3.0}
  - name: b
    kind: charging-point
    feed_url: https://nap.example/b.xml
    reference: {lat: 40.0, lon: -3.0}
`
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Service.HTTPAddr)
	assert.Equal(t, "info", cfg.Service.LogLevel)
	assert.Equal(t, "json", cfg.Service.LogFormat)
	assert.Equal(t, 15*time.Second, cfg.Service.FetchTimeout.Std())
	assert.False(t, cfg.Kafka.Enabled())

	incident := cfg.Zones[0]
	assert.Equal(t, config.DefaultIncidentRadiusKM, incident.RadiusKM)
	assert.Equal(t, config.DefaultIncidentInterval, incident.Interval.Std())
	assert.Equal(t, config.DefaultIncidentMaxAgeDays, incident.MaxAgeDays)

	charging := cfg.Zones[1]
	assert.Equal(t, config.DefaultChargingRadiusKM, charging.RadiusKM)
	assert.Equal(t, config.DefaultChargingInterval, charging.Interval.Std())
	assert.Zero(t, charging.MaxAgeDays)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "no zones", doc: `service: {http_addr: ":8080"}`},
		{
			name: "bad kind",
			doc: `
zones:
  - name: a
    kind: weather
    feed_url: https://nap.example/a.xml
    reference: {lat: 1.0, lon: 1.0}
`,
		},
		{
			name: "bad feed url",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: not-a-url
    reference: {lat: 1.0, lon: 1.0}
`,
		},
		{
			name: "latitude out of range",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
    reference: {lat: 95.0, lon: 1.0}
`,
		},
		{
			name: "static reference without coordinates",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
`,
		},
		{
			name: "person reference without entity",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
    reference: {source: person}
`,
		},
		{
			name: "duplicate zone names",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
    reference: {lat: 1.0, lon: 1.0}
  - name: a
    kind: incident
    feed_url: https://nap.example/b.xml
    reference: {lat: 1.0, lon: 1.0}
`,
		},
		{
			name: "unparseable interval",
			doc: `
zones:
  - name: a
    kind: incident
    feed_url: https://nap.example/a.xml
    interval: soon
    reference: {lat: 1.0, lon: 1.0}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Zones, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestDomainZones(t *testing.T) {
	cfg, err := config.Parse([]byte(fullConfig))
	require.NoError(t, err)

	zones := cfg.DomainZones()
	require.Len(t, zones, 2)

	traffic := zones[0]
	assert.Equal(t, domain.KindIncident, traffic.Kind)
	assert.Equal(t, domain.RefStatic, traffic.Reference.Source)
	assert.Equal(t, 40.4168, traffic.Reference.Geo.Lat)
	assert.Equal(t, 7*24*time.Hour, traffic.MaxAge)
	assert.Equal(t, 0.2, traffic.UpdateEpsilonKM)

	charging := zones[1]
	assert.Equal(t, domain.KindCharging, charging.Kind)
	assert.Equal(t, domain.RefPerson, charging.Reference.Source)
	assert.Equal(t, "person.ana", charging.Reference.EntityID)
	assert.Zero(t, charging.MaxAge)
}
