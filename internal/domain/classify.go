package domain

// Category is a classification bucket. Incidents and charging points draw
// from disjoint fixed sets; see IncidentCategories and ChargingCategories.
type Category string

const (
	CategoryAccident     Category = "accident"
	CategoryCongestion   Category = "congestion"
	CategoryRoadworks    Category = "roadworks"
	CategorySpecialEvent Category = "special-event"
	CategoryOther        Category = "other"

	CategorySlow    Category = "slow"    // ≤22 kW
	CategoryFast    Category = "fast"    // ≤50 kW
	CategoryRapid   Category = "rapid"   // ≤150 kW
	CategoryUltra   Category = "ultra"   // >150 kW
	CategoryUnknown Category = "unknown" // power rating absent
)

// incidentTypeCategories maps DATEX situation record types to categories.
// Record types with no entry classify as CategoryOther; weather-ish types
// are deliberately absent (weather processing is not implemented).
var incidentTypeCategories = map[string]Category{
	"Accident":                                 CategoryAccident,
	"AbnormalTraffic":                          CategoryCongestion,
	"TrafficElement":                           CategoryCongestion,
	"MaintenanceWorks":                         CategoryRoadworks,
	"RoadOrCarriagewayOrLaneManagement":        CategoryRoadworks,
	"ConstructionWorks":                        CategoryRoadworks,
	"PublicEvent":                              CategorySpecialEvent,
	"AuthorityOperation":                       CategorySpecialEvent,
	"GeneralInstructionOrMessageToRoadUsers":   CategorySpecialEvent,
	"DisturbanceActivity":                      CategorySpecialEvent,
}

// severityAliases collapses the DATEX severity scale onto low/medium/high.
var severityAliases = map[string]string{
	"low":      "low",
	"medium":   "medium",
	"high":     "high",
	"highest":  "high",
	"veryHigh": "high",
}

// IncidentCategories returns the full incident category set in reporting
// order. Aggregates report every bucket, including zero counts.
func IncidentCategories() []Category {
	return []Category{
		CategoryAccident, CategoryCongestion, CategoryRoadworks,
		CategorySpecialEvent, CategoryOther,
	}
}

// ChargingCategories returns the full power-bucket set in reporting order.
func ChargingCategories() []Category {
	return []Category{
		CategorySlow, CategoryFast, CategoryRapid,
		CategoryUltra, CategoryUnknown,
	}
}

// Categories returns the category set for a record kind.
func Categories(kind Kind) []Category {
	if kind == KindCharging {
		return ChargingCategories()
	}
	return IncidentCategories()
}

// ClassifyIncident maps a DATEX situation record type to its category.
// Unrecognized types map to CategoryOther rather than failing.
func ClassifyIncident(recordType string) Category {
	if c, ok := incidentTypeCategories[recordType]; ok {
		return c
	}
	return CategoryOther
}

// ClassifyCharging buckets a charging point by maximum rated power.
// A nil power rating lands in CategoryUnknown, never dropped.
func ClassifyCharging(powerKW *float64) Category {
	if powerKW == nil {
		return CategoryUnknown
	}
	switch kw := *powerKW; {
	case kw <= 22:
		return CategorySlow
	case kw <= 50:
		return CategoryFast
	case kw <= 150:
		return CategoryRapid
	default:
		return CategoryUltra
	}
}

// Classify assigns the record's category from its attributes. Pure function
// of the single record; no cross-record state.
func Classify(rec Record) Record {
	switch rec.Kind {
	case KindCharging:
		rec.Category = ClassifyCharging(rec.PowerKW)
	default:
		rec.Category = ClassifyIncident(rec.Attr("record_type"))
	}
	return rec
}

// NormalizeSeverity maps a raw DATEX severity onto the low/medium/high
// scale. Empty or unrecognized values default to "low", matching the
// upstream publisher's behavior for unsent severities.
func NormalizeSeverity(raw string) string {
	if s, ok := severityAliases[raw]; ok {
		return s
	}
	return "low"
}

// severityRank orders normalized severities for most-severe selection.
func severityRank(s string) int {
	switch s {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}

// MoreSevere reports whether severity a outranks severity b.
func MoreSevere(a, b string) bool {
	return severityRank(a) > severityRank(b)
}
