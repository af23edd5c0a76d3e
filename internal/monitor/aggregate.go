package monitor

import (
	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// NearestRecord summarizes the single closest retained record.
type NearestRecord struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	DistanceKM  float64 `json:"distance_km"`
}

// Stats is the aggregate view of one cycle's retained set. ByCategory
// always lists every category the zone kind can produce, zero-valued when
// empty, so consumers see a stable key set.
type Stats struct {
	Total      int            `json:"total"`
	NearestKM  *float64       `json:"nearest_km,omitempty"`
	Nearest    *NearestRecord `json:"nearest,omitempty"`
	ByCategory map[string]int `json:"by_category"`
	BySeverity map[string]int `json:"by_severity,omitempty"`
	MostSevere string         `json:"most_severe,omitempty"`
}

// Aggregate computes Stats for a classified, filtered record set. kind
// fixes the category key set even when records is empty.
func Aggregate(kind domain.Kind, records []domain.Record) Stats {
	stats := Stats{
		Total:      len(records),
		ByCategory: make(map[string]int),
	}
	for _, cat := range domain.Categories(kind) {
		stats.ByCategory[string(cat)] = 0
	}

	for _, rec := range records {
		stats.ByCategory[string(rec.Category)]++

		if stats.NearestKM == nil || rec.DistanceKM < *stats.NearestKM {
			d := rec.DistanceKM
			stats.NearestKM = &d
			stats.Nearest = &NearestRecord{
				ID:          rec.ID,
				Category:    string(rec.Category),
				Description: rec.Description,
				DistanceKM:  rec.DistanceKM,
			}
		}

		if kind == domain.KindIncident {
			if stats.BySeverity == nil {
				stats.BySeverity = make(map[string]int)
			}
			stats.BySeverity[rec.Severity]++
			if domain.MoreSevere(rec.Severity, stats.MostSevere) {
				stats.MostSevere = rec.Severity
			}
		}
	}

	return stats
}
