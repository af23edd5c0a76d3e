// Package domain models road-traffic incidents and EV charging points
// published by the Spanish road authority (DGT) in DATEX II v3.6 XML.
//
// # Data Sources
//
// Two national feeds are consumed:
//
//	Incidents:       SituationPublication: one <situation> per incident,
//	                 carrying one or more <situationRecord> elements.
//	Charging points: EnergyInfrastructureTablePublication: one
//	                 <energyInfrastructureSite> per station.
//
// # DATEX II Conventions
//
// Identity:
//
//	Situations and situation records carry "id" and "version" attributes.
//	A record's stable identity is "<situationID>_<recordID>"; charging
//	sites use the site id directly. Identities are stable across polls,
//	which is what makes cycle-to-cycle reconciliation possible.
//
// Record type:
//
//	The situation record's xsi:type attribute (namespace prefix stripped)
//	names the incident kind, e.g. "Accident", "MaintenanceWorks",
//	"AbnormalTraffic". Unrecognized types classify as CategoryOther.
//
// Severity:
//
//	DATEX values low/medium/high/highest/veryHigh are normalized to the
//	three-level scale low/medium/high ("highest" and "veryHigh" collapse
//	into "high"). A missing severity element defaults to "low".
//
// Charging power:
//
//	Rated output power is reported in kW, but some operators publish watts;
//	values above 1000 are assumed to be watts and divided by 1000 (no
//	public charger exceeds 1 MW). When no power element is present the
//	connector type implies a floor: CCS/Combo 150 kW, CHAdeMO 50 kW,
//	Type 2 22 kW. Only records with neither land in the "unknown" bucket.
//
// # Classification
//
// Incident categories are a fixed five-value set (accident, congestion,
// roadworks, special-event, other) derived from the record type. Charging
// points bucket by maximum power: slow ≤22 kW, fast ≤50 kW, rapid ≤150 kW,
// ultra >150 kW, plus "unknown". Both classifiers are total: every record
// receives exactly one category and none is dropped by classification.
package domain
