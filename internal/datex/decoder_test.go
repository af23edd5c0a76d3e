package datex

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

const incidentPayload = `<?xml version="1.0" encoding="UTF-8"?>
<d2:payload xmlns:d2="http://levelC/schema/3/d2Payload"
            xmlns:sit="http://levelC/schema/3/situation"
            xmlns:com="http://levelC/schema/3/common"
            xmlns:loc="http://levelC/schema/3/locationReferencing"
            xmlns:lse="http://levelC/schema/3/locationReferencingSpanishExtension"
            xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <sit:situation id="SIT-001" version="2">
    <sit:overallSeverity>highest</sit:overallSeverity>
    <sit:situationRecord xsi:type="sit:Accident" id="REC-001" version="2">
      <sit:situationRecordCreationTime>2026-08-28T09:15:00+02:00</sit:situationRecordCreationTime>
      <sit:probabilityOfOccurrence>certain</sit:probabilityOfOccurrence>
      <sit:source><com:sourceIdentification>DGT</com:sourceIdentification></sit:source>
      <sit:validity><com:validityStatus>active</com:validityStatus></sit:validity>
      <sit:cause>
        <sit:causeType>accident</sit:causeType>
        <sit:accidentType>multiVehicleAccident</sit:accidentType>
      </sit:cause>
      <sit:locationReference>
        <loc:roadName>A-2</loc:roadName>
        <lse:province>Guadalajara</lse:province>
        <lse:municipality>Azuqueca</lse:municipality>
        <loc:from>
          <lse:kilometerPoint>43.5</lse:kilometerPoint>
          <loc:latitude>40.565</loc:latitude>
          <loc:longitude>-3.267</loc:longitude>
        </loc:from>
        <loc:to>
          <lse:kilometerPoint>44</lse:kilometerPoint>
        </loc:to>
      </sit:locationReference>
    </sit:situationRecord>
    <sit:situationRecord xsi:type="sit:MaintenanceWorks" id="REC-002" version="1">
      <sit:severity>medium</sit:severity>
      <sit:locationReference>
        <loc:roadName>A-2</loc:roadName>
        <loc:from>
          <loc:latitude>40.571</loc:latitude>
          <loc:longitude>-3.250</loc:longitude>
        </loc:from>
      </sit:locationReference>
    </sit:situationRecord>
  </sit:situation>
  <sit:situation id="SIT-002" version="1">
    <sit:situationRecord xsi:type="sit:AbnormalTraffic" id="REC-009">
      <sit:locationReference>
        <loc:pointCoordinates>
          <loc:latitude>40.9</loc:latitude>
          <loc:longitude>not-a-number</loc:longitude>
        </loc:pointCoordinates>
      </sit:locationReference>
    </sit:situationRecord>
  </sit:situation>
  <sit:situation id="SIT-003" version="1">
    <sit:situationRecord xsi:type="sit:Accident" id="">
      <sit:severity>high</sit:severity>
    </sit:situationRecord>
  </sit:situation>
</d2:payload>`

const chargingPayload = `<?xml version="1.0" encoding="UTF-8"?>
<d2:payload xmlns:d2="http://datex2.eu/schema/3/d2Payload"
            xmlns:egi="http://datex2.eu/schema/3/energyInfrastructure"
            xmlns:fac="http://datex2.eu/schema/3/facilities"
            xmlns:loc="http://datex2.eu/schema/3/locationReferencing"
            xmlns:com="http://datex2.eu/schema/3/common">
  <egi:energyInfrastructureSite id="ES-0001">
    <fac:name><com:values><com:value lang="es">Electrolinera Centro</com:value></com:values></fac:name>
    <fac:operator id="ES*945">
      <fac:name><com:values><com:value>Tesla</com:value></com:values></fac:name>
    </fac:operator>
    <loc:coordinatesForDisplay>
      <loc:latitude>40.4170</loc:latitude>
      <loc:longitude>-3.7035</loc:longitude>
    </loc:coordinatesForDisplay>
    <egi:refillPoint>
      <egi:connector>
        <egi:connectorType>iec62196T2Combo</egi:connectorType>
        <egi:maxPowerAtSocket>250000</egi:maxPowerAtSocket>
      </egi:connector>
      <egi:connector>
        <egi:connectorType>iec62196T2</egi:connectorType>
        <egi:maxPowerAtSocket>22</egi:maxPowerAtSocket>
      </egi:connector>
    </egi:refillPoint>
  </egi:energyInfrastructureSite>
  <egi:energyInfrastructureSite id="ES-0002">
    <fac:operator id="ES*955"/>
    <loc:latitude>41.10</loc:latitude>
    <loc:longitude>-3.90</loc:longitude>
    <egi:refillPoint>
      <egi:connector>
        <egi:connectorType>chademo</egi:connectorType>
      </egi:connector>
    </egi:refillPoint>
  </egi:energyInfrastructureSite>
  <egi:energyInfrastructureSite id="ES-0003">
    <loc:latitude>41.20</loc:latitude>
    <loc:longitude>-3.95</loc:longitude>
  </egi:energyInfrastructureSite>
</d2:payload>`

func TestDecodeIncidents(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	res, err := DecodeIncidents([]byte(incidentPayload))
	require.NoError(t, err)

	// Three well-formed records; the one with a blank record id is skipped.
	require.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.Skipped)

	byID := map[string]domain.Record{}
	for _, r := range res.Records {
		byID[r.ID] = r
	}

	accident := byID["SIT-001_REC-001"]
	assert.Equal(t, domain.KindIncident, accident.Kind)
	assert.Equal(t, "Accident", accident.Attr("record_type"))
	assert.Equal(t, "high", accident.Severity, "overallSeverity highest collapses to high")
	assert.Equal(t, "accident", accident.Attr("cause_type"))
	assert.Equal(t, "multiVehicleAccident", accident.Attr("detailed_cause"))
	assert.Equal(t, "active", accident.Attr("validity_status"))
	assert.Equal(t, "DGT", accident.Attr("source"))
	assert.Equal(t, "A-2", accident.Attr("road"))
	assert.Equal(t, "43.5", accident.Attr("km_from"))
	assert.Equal(t, "44", accident.Attr("km_to"))
	require.NotNil(t, accident.Geo)
	assert.InDelta(t, 40.565, accident.Geo.Lat, 1e-9)
	assert.InDelta(t, -3.267, accident.Geo.Lon, 1e-9)
	assert.Equal(t, "Accident: A-2 km 43.5-44 (Azuqueca, Guadalajara)", accident.Description)
	assert.Equal(t, time.Date(2026, 8, 28, 9, 15, 0, 0, time.FixedZone("", 2*3600)).Unix(), accident.CreatedAt.Unix())
	assert.Equal(t, fake.Now(), accident.SeenAt)

	works := byID["SIT-001_REC-002"]
	assert.Equal(t, "medium", works.Severity, "record severity overrides overall")
	require.NotNil(t, works.Geo)
	assert.True(t, works.CreatedAt.IsZero())

	// Unparseable longitude leaves the record unfilterable, not dropped.
	congestion := byID["SIT-002_REC-009"]
	assert.Nil(t, congestion.Geo)
	assert.Equal(t, "low", congestion.Severity)
}

func TestDecodeIncidents_NotWellFormed(t *testing.T) {
	_, err := DecodeIncidents([]byte(`<d2:payload><sit:situation id="S1">`))

	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, domain.KindIncident, decodeErr.Kind)
}

func TestDecodeIncidents_NoIdentities(t *testing.T) {
	payload := `<payload>
	  <situation id=""><situationRecord id=""/></situation>
	  <situation><situationRecord/></situation>
	</payload>`

	_, err := DecodeIncidents([]byte(payload))

	var decodeErr *domain.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecodeIncidents_EmptyPayload(t *testing.T) {
	res, err := DecodeIncidents([]byte(`<payload></payload>`))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Skipped)
}

func TestDecodeIncidents_DuplicateIdentity(t *testing.T) {
	payload := `<payload>
	  <situation id="S1">
	    <situationRecord id="R1"/>
	    <situationRecord id="R1"/>
	  </situation>
	</payload>`

	res, err := DecodeIncidents([]byte(payload))
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestDecodeChargingSites(t *testing.T) {
	res, err := DecodeChargingSites([]byte(chargingPayload))
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Zero(t, res.Skipped)

	byID := map[string]domain.Record{}
	for _, r := range res.Records {
		byID[r.ID] = r
	}

	centro := byID["ES-0001"]
	assert.Equal(t, domain.KindCharging, centro.Kind)
	assert.Equal(t, "Electrolinera Centro", centro.Attr("name"))
	assert.Equal(t, "Tesla", centro.Attr("operator"))
	require.NotNil(t, centro.Geo)
	assert.InDelta(t, 40.4170, centro.Geo.Lat, 1e-9)
	require.NotNil(t, centro.PowerKW)
	assert.InDelta(t, 250, *centro.PowerKW, 1e-9, "watt-encoded power scaled to kW")
	assert.Equal(t, "2", centro.Attr("connectors"))

	// No power element: CHAdeMO connector implies a 50 kW floor, and the
	// missing operator name resolves through the ES* code table.
	zunder := byID["ES-0002"]
	require.NotNil(t, zunder.PowerKW)
	assert.InDelta(t, 50, *zunder.PowerKW, 1e-9)
	assert.Equal(t, "Zunder", zunder.Attr("operator"))

	// No power, no connectors: rating stays absent for the unknown bucket.
	bare := byID["ES-0003"]
	assert.Nil(t, bare.PowerKW)
	assert.Equal(t, domain.CategoryUnknown, domain.Classify(bare).Category)
}

func TestDecode_Dispatch(t *testing.T) {
	res, err := Decode(domain.KindCharging, []byte(chargingPayload))
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)

	res, err = Decode(domain.KindIncident, []byte(`<payload></payload>`))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{"rfc3339 with offset", "2026-08-28T09:15:00+02:00", false},
		{"rfc3339 with millis", "2026-08-28T09:15:00.250+02:00", false},
		{"naive datetime", "2026-08-28 09:15:00", false},
		{"empty", "", true},
		{"garbage", "yesterday-ish", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.zero, parseTime(tt.input).IsZero())
		})
	}
}
