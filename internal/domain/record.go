package domain

import "time"

// Kind distinguishes the two feed record families.
type Kind string

const (
	KindIncident Kind = "incident"
	KindCharging Kind = "charging-point"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Record is one decoded feed item. Geo is nil when the feed carried no
// parseable coordinates; such records are unfilterable and never reach a
// zone's retained set.
type Record struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Geo  *Geo   `json:"geo,omitempty"`

	// Attrs preserves raw feed fields beyond the typed ones, keyed by
	// local element name. Schema drift lands here instead of failing.
	Attrs map[string]string `json:"attrs,omitempty"`

	Severity    string   `json:"severity,omitempty"` // incidents: low/medium/high
	PowerKW     *float64 `json:"power_kw,omitempty"` // charging: max rated power
	Category    Category `json:"category,omitempty"` // set by the classifier
	Description string   `json:"description,omitempty"`

	// DistanceKM is the great-circle distance to the zone's reference
	// point, rounded to 0.1 km. Set by the geo filter.
	DistanceKM float64 `json:"distance_km"`

	CreatedAt time.Time `json:"created_at,omitzero"` // situation record creation time
	SeenAt    time.Time `json:"seen_at"`
}

// Attr returns the named raw attribute, or "" when absent.
func (r Record) Attr(key string) string {
	return r.Attrs[key]
}

// RefSource tags where a zone's reference coordinate comes from.
type RefSource string

const (
	RefStatic RefSource = "static"
	RefPerson RefSource = "person"
	RefSensor RefSource = "sensor"
)

// ReferenceConfig is a zone's reference-point source configuration.
// Geo is only meaningful for RefStatic; EntityID only for person/sensor.
type ReferenceConfig struct {
	Source   RefSource
	Geo      Geo
	EntityID string
}

// ReferencePoint is a resolved reference coordinate for one cycle.
type ReferencePoint struct {
	Geo      Geo       `json:"geo"`
	Source   RefSource `json:"source"`
	EntityID string    `json:"entity_id,omitempty"`
}

// Zone is one configured monitoring instance.
type Zone struct {
	Name      string
	Kind      Kind
	FeedURL   string
	RadiusKM  float64
	Reference ReferenceConfig

	// MaxAge drops incident records whose creation time is older than
	// this. Zero means no age cut (charging feeds).
	MaxAge time.Duration

	// UpdateEpsilonKM is the distance delta below which a moved record is
	// treated as feed noise rather than an update. Zero selects the
	// reconciler default.
	UpdateEpsilonKM float64
}
