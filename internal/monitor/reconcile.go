// Package monitor orchestrates per-zone refresh cycles: it owns each zone's
// previous-cycle snapshot, reconciles successive retained sets into
// added/updated/removed deltas, derives aggregate statistics, and publishes
// the result.
package monitor

import (
	"math"
	"sort"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// DefaultDistanceEpsilonKM is the movement below which a record's new
// position is treated as feed noise. It matches the 0.1 km distance
// rounding scale, so rounding alone can never produce an update.
const DefaultDistanceEpsilonKM = 0.05

// ReconcileOptions controls what counts as a material change between two
// sightings of the same record.
type ReconcileOptions struct {
	// DistanceEpsilonKM: a distance delta at or below this is noise.
	// Zero selects DefaultDistanceEpsilonKM.
	DistanceEpsilonKM float64

	// CompareSeverity includes incident severity changes in the update
	// trigger set alongside category and distance.
	CompareSeverity bool
}

func (o ReconcileOptions) epsilon() float64 {
	if o.DistanceEpsilonKM > 0 {
		return o.DistanceEpsilonKM
	}
	return DefaultDistanceEpsilonKM
}

// UpdatedPair carries both sightings of a materially changed record.
type UpdatedPair struct {
	Old domain.Record `json:"old"`
	New domain.Record `json:"new"`
}

// ReconcileResult is the delta between two consecutive cycles' retained
// sets, plus the full current set. Slices are sorted by record ID so output
// is deterministic.
type ReconcileResult struct {
	Added   []domain.Record `json:"added"`
	Updated []UpdatedPair   `json:"updated"`
	Removed []string        `json:"removed"`
	Current []domain.Record `json:"current"`
}

// Snapshot keys a cycle's retained, classified records by identity.
type Snapshot map[string]domain.Record

// NewSnapshot builds a Snapshot from a record slice.
func NewSnapshot(records []domain.Record) Snapshot {
	s := make(Snapshot, len(records))
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}

// Reconcile diffs the current classified set against the previous snapshot.
// Identities only in current are added; only in previous, removed; in both,
// updated when category, distance beyond the epsilon, or (optionally)
// severity changed, otherwise unchanged and surfaced only through Current.
func Reconcile(prev Snapshot, current []domain.Record, opts ReconcileOptions) ReconcileResult {
	res := ReconcileResult{Current: sortedByID(current)}
	eps := opts.epsilon()

	seen := make(map[string]struct{}, len(current))
	for _, rec := range res.Current {
		seen[rec.ID] = struct{}{}
		old, existed := prev[rec.ID]
		if !existed {
			res.Added = append(res.Added, rec)
			continue
		}
		if materialChange(old, rec, eps, opts.CompareSeverity) {
			res.Updated = append(res.Updated, UpdatedPair{Old: old, New: rec})
		}
	}

	for id := range prev {
		if _, ok := seen[id]; !ok {
			res.Removed = append(res.Removed, id)
		}
	}
	sort.Strings(res.Removed)

	return res
}

func materialChange(old, cur domain.Record, epsilonKM float64, compareSeverity bool) bool {
	if old.Category != cur.Category {
		return true
	}
	if math.Abs(old.DistanceKM-cur.DistanceKM) > epsilonKM {
		return true
	}
	if compareSeverity && old.Severity != cur.Severity {
		return true
	}
	return false
}

func sortedByID(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
