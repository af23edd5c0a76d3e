// Package datex decodes DATEX II v3.6 feed payloads into domain records.
//
// The decoder is deliberately schema-tolerant: elements are matched by local
// name only, ignoring namespaces, and missing optional elements become absent
// attributes instead of failures. Only a payload that is not well-formed XML,
// or one where no candidate element carries an identity, is a DecodeError.
// Individual records missing identity or with unparseable fields are dropped
// and counted, never fatal.
package datex

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// Result carries a decoded payload: the well-formed records plus the count
// of candidate elements dropped for missing identity or duplicates.
type Result struct {
	Records []domain.Record
	Skipped int
}

// Decode dispatches to the decoder for the given record kind.
func Decode(kind domain.Kind, data []byte) (Result, error) {
	if kind == domain.KindCharging {
		return DecodeChargingSites(data)
	}
	return DecodeIncidents(data)
}

// DecodeIncidents parses a SituationPublication payload. Each
// <situationRecord> inside a <situation> becomes one Record with identity
// "<situationID>_<recordID>".
func DecodeIncidents(data []byte) (Result, error) {
	elems, err := collectElements(data, "situation")
	if err != nil {
		return Result{}, &domain.DecodeError{Kind: domain.KindIncident, Err: err}
	}

	var res Result
	seen := make(map[string]struct{})
	candidates := 0

	for _, sit := range elems {
		sitID := sit.attr("id")
		overall := domain.NormalizeSeverity(sit.childText("overallSeverity"))

		records := sit.childrenNamed("situationRecord")
		if len(records) == 0 {
			candidates++
			res.Skipped++
			continue
		}
		for _, rec := range records {
			candidates++
			recID := rec.attr("id")
			if sitID == "" || recID == "" {
				res.Skipped++
				continue
			}
			id := sitID + "_" + recID
			if _, dup := seen[id]; dup {
				res.Skipped++
				continue
			}
			seen[id] = struct{}{}
			res.Records = append(res.Records, parseSituationRecord(id, overall, rec))
		}
	}

	if candidates > 0 && len(res.Records) == 0 {
		return Result{}, &domain.DecodeError{
			Kind: domain.KindIncident,
			Err:  fmt.Errorf("no record in payload carries an identity (%d dropped)", res.Skipped),
		}
	}
	return res, nil
}

func parseSituationRecord(id, overallSeverity string, rec *element) domain.Record {
	attrs := map[string]string{}

	recordType := rec.attr("type")
	if i := strings.LastIndex(recordType, ":"); i >= 0 {
		recordType = recordType[i+1:]
	}
	setAttr(attrs, "record_type", recordType)
	setAttr(attrs, "version", rec.attr("version"))

	severity := overallSeverity
	if raw := rec.childText("severity"); raw != "" {
		severity = domain.NormalizeSeverity(raw)
	}

	setAttr(attrs, "probability", rec.childText("probabilityOfOccurrence"))
	setAttr(attrs, "source", rec.deepText("sourceIdentification"))
	if validity := rec.child("validity"); validity != nil {
		setAttr(attrs, "validity_status", validity.deepText("validityStatus"))
		setAttr(attrs, "validity_start", validity.deepText("overallStartTime"))
	}

	if cause := rec.child("cause"); cause != nil {
		setAttr(attrs, "cause_type", cause.childText("causeType"))
		for _, name := range []string{"roadMaintenanceType", "poorEnvironmentType", "accidentType", "obstructionType"} {
			if v := cause.deepText(name); v != "" {
				setAttr(attrs, "detailed_cause", v)
				break
			}
		}
	}

	setAttr(attrs, "road", rec.deepText("roadName"))
	setAttr(attrs, "province", rec.deepText("province"))
	setAttr(attrs, "municipality", rec.deepText("municipality"))
	setAttr(attrs, "autonomous_community", rec.deepText("autonomousCommunity"))
	setAttr(attrs, "lanes_affected", rec.deepText("laneUsage"))
	setAttr(attrs, "vehicle_type", rec.deepText("vehicleType"))
	if dir := rec.deepText("tpegDirectionRoad"); dir != "" {
		attrs["direction"] = dir
	} else {
		setAttr(attrs, "direction", rec.deepText("tpegDirection"))
	}

	var geo *domain.Geo
	if from := rec.deep("from"); from != nil {
		setAttr(attrs, "km_from", from.deepText("kilometerPoint"))
		geo = parseGeo(from.deepText("latitude"), from.deepText("longitude"))
	}
	if to := rec.deep("to"); to != nil {
		setAttr(attrs, "km_to", to.deepText("kilometerPoint"))
	}
	if geo == nil {
		// Point locations carry coordinates without a from/to pair.
		geo = parseGeo(rec.deepText("latitude"), rec.deepText("longitude"))
	}

	return domain.Record{
		ID:          id,
		Kind:        domain.KindIncident,
		Geo:         geo,
		Attrs:       attrs,
		Severity:    severity,
		Description: incidentDescription(attrs),
		CreatedAt:   parseTime(rec.childText("situationRecordCreationTime")),
		SeenAt:      domain.Now(),
	}
}

// DecodeChargingSites parses an EnergyInfrastructureTablePublication
// payload. Each <energyInfrastructureSite> becomes one Record.
func DecodeChargingSites(data []byte) (Result, error) {
	elems, err := collectElements(data, "energyInfrastructureSite")
	if err != nil {
		return Result{}, &domain.DecodeError{Kind: domain.KindCharging, Err: err}
	}

	var res Result
	seen := make(map[string]struct{})

	for _, site := range elems {
		id := site.attr("id")
		if id == "" {
			res.Skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			res.Skipped++
			continue
		}
		seen[id] = struct{}{}
		res.Records = append(res.Records, parseChargingSite(id, site))
	}

	if len(elems) > 0 && len(res.Records) == 0 {
		return Result{}, &domain.DecodeError{
			Kind: domain.KindCharging,
			Err:  fmt.Errorf("no site in payload carries an identity (%d dropped)", res.Skipped),
		}
	}
	return res, nil
}

// chargingOperators resolves DGT operator ids to display names when the
// feed omits the operator name element.
var chargingOperators = map[string]string{
	"ES*915": "Iberdrola",
	"ES*920": "Endesa",
	"ES*925": "Repsol",
	"ES*930": "Cepsa",
	"ES*935": "BP",
	"ES*940": "Shell",
	"ES*945": "Tesla",
	"ES*950": "EasyCharger",
	"ES*955": "Zunder",
	"ES*960": "Wenea",
}

func parseChargingSite(id string, site *element) domain.Record {
	attrs := map[string]string{}

	name := ""
	if n := site.deep("name"); n != nil {
		name = n.deepText("value")
	}
	setAttr(attrs, "name", name)

	var geo *domain.Geo
	if disp := site.deep("coordinatesForDisplay"); disp != nil {
		geo = parseGeo(disp.deepText("latitude"), disp.deepText("longitude"))
	}
	if geo == nil {
		geo = parseGeo(site.deepText("latitude"), site.deepText("longitude"))
	}

	if op := site.deep("operator"); op != nil {
		opID := op.attr("id")
		opName := op.deepText("value")
		if opName == "" {
			if known, ok := chargingOperators[opID]; ok {
				opName = known
			}
		}
		setAttr(attrs, "operator_id", opID)
		setAttr(attrs, "operator", opName)
	}

	var lines []string
	for _, addr := range site.deepAll("addressLine") {
		if v := addr.deepText("value"); v != "" {
			lines = append(lines, v)
		}
	}
	setAttr(attrs, "address", strings.Join(lines, ", "))

	connectors := site.deepAll("connector")
	if len(connectors) > 0 {
		attrs["connectors"] = strconv.Itoa(len(connectors))
	}

	power := maxPowerKW(site, connectors)
	if power != nil {
		attrs["max_power_kw"] = strconv.FormatFloat(*power, 'f', 1, 64)
	}

	desc := name
	if desc == "" {
		desc = "charging site " + id
	}

	return domain.Record{
		ID:          id,
		Kind:        domain.KindCharging,
		Geo:         geo,
		Attrs:       attrs,
		PowerKW:     power,
		Description: desc,
		SeenAt:      domain.Now(),
	}
}

// maxPowerKW finds the site's maximum rated power. Values above 1000 are
// watts (no public charger exceeds 1 MW) and are scaled down. When no power
// element parses, the connector type implies a floor; with no connectors
// either, the rating is absent and the record buckets as unknown.
func maxPowerKW(site *element, connectors []*element) *float64 {
	max := 0.0
	for _, name := range []string{"maxPowerAtSocket", "ratedOutputPower"} {
		for _, el := range site.deepAll(name) {
			v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(el.text), ",", "."), 64)
			if err != nil || v <= 0 {
				continue
			}
			if v > 1000 {
				v /= 1000
			}
			if v > max {
				max = v
			}
		}
	}
	if max > 0 {
		return &max
	}

	for _, conn := range connectors {
		var floor float64
		switch t := strings.ToUpper(conn.deepText("connectorType")); {
		case strings.Contains(t, "CCS"), strings.Contains(t, "COMBO"):
			floor = 150
		case strings.Contains(t, "CHADEMO"):
			floor = 50
		case strings.Contains(t, "IEC62196T2"), strings.Contains(t, "TYPE2"):
			floor = 22
		}
		if floor > max {
			max = floor
		}
	}
	if max > 0 {
		return &max
	}
	return nil
}

// incidentDescription synthesizes a short human-readable summary from the
// location attributes, e.g. "Accident: A-2 km 23.5-24 (Guadalajara)".
func incidentDescription(attrs map[string]string) string {
	var b strings.Builder
	if t := attrs["record_type"]; t != "" {
		b.WriteString(t)
		b.WriteString(": ")
	}
	road := attrs["road"]
	if road == "" {
		road = "road"
	}
	b.WriteString(road)

	from, to := attrs["km_from"], attrs["km_to"]
	switch {
	case from != "" && to != "" && from != to:
		fmt.Fprintf(&b, " km %s-%s", from, to)
	case from != "":
		fmt.Fprintf(&b, " km %s", from)
	}

	mun, prov := attrs["municipality"], attrs["province"]
	switch {
	case mun != "" && prov != "":
		fmt.Fprintf(&b, " (%s, %s)", mun, prov)
	case prov != "":
		fmt.Fprintf(&b, " (%s)", prov)
	}
	return b.String()
}

// --- tolerant element tree ---

// element is a namespace-agnostic XML element. Matching by local name keeps
// decoding stable when the publisher shuffles namespace prefixes or adds
// extension elements.
type element struct {
	name     string
	attrs    map[string]string
	text     string
	children []*element
}

// collectElements streams the payload and fully decodes every element whose
// local name matches target, skipping everything else. A syntax error
// anywhere makes the whole payload undecodable.
func collectElements(data []byte, target string) ([]*element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []*element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != target {
			continue
		}
		el, err := parseElement(dec, start)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*element, error) {
	el := &element{name: start.Name.Local, attrs: make(map[string]string, len(start.Attr))}
	for _, a := range start.Attr {
		el.attrs[a.Name.Local] = a.Value
	}
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			el.children = append(el.children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			el.text = strings.TrimSpace(text.String())
			return el, nil
		}
	}
}

func (e *element) attr(name string) string { return e.attrs[name] }

// child returns the first direct child with the given local name.
func (e *element) child(name string) *element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childrenNamed returns all direct children with the given local name.
func (e *element) childrenNamed(name string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (e *element) childText(name string) string {
	if c := e.child(name); c != nil {
		return c.text
	}
	return ""
}

// deep returns the first descendant with the given local name, depth-first.
func (e *element) deep(name string) *element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
		if m := c.deep(name); m != nil {
			return m
		}
	}
	return nil
}

// deepAll returns every descendant with the given local name.
func (e *element) deepAll(name string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.deepAll(name)...)
	}
	return out
}

func (e *element) deepText(name string) string {
	if m := e.deep(name); m != nil {
		return m.text
	}
	return ""
}

func setAttr(attrs map[string]string, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}

func parseGeo(latText, lonText string) *domain.Geo {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if errLat != nil || errLon != nil {
		return nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil
	}
	return &domain.Geo{Lat: lat, Lon: lon}
}

// parseTime accepts the timestamp shapes the feed has been seen to publish.
// Unparseable values yield the zero time rather than an error.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
