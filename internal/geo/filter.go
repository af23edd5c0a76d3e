package geo

import "github.com/roadwatch/datex-zone-monitor/internal/domain"

// FilterResult holds the records retained by a radius filter, each annotated
// with its rounded distance, plus the count of records that could not be
// filtered for lack of valid coordinates.
type FilterResult struct {
	Records      []domain.Record
	Unfilterable int
}

// Filter retains the records whose great-circle distance to the reference
// point is at most radiusKM (the boundary is inclusive on the rounded
// distance). Records without coordinates are excluded and counted, never
// treated as distance zero.
func Filter(ref domain.ReferencePoint, radiusKM float64, records []domain.Record) FilterResult {
	var res FilterResult
	for _, rec := range records {
		if rec.Geo == nil {
			res.Unfilterable++
			continue
		}
		d := RoundDistanceKM(DistanceKM(ref.Geo, *rec.Geo))
		if d > radiusKM {
			continue
		}
		rec.DistanceKM = d
		res.Records = append(res.Records, rec)
	}
	return res
}
