package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
	"github.com/roadwatch/datex-zone-monitor/internal/fetch"
	"github.com/roadwatch/datex-zone-monitor/internal/geo"
	"github.com/roadwatch/datex-zone-monitor/internal/observability"
)

// Cycle stage names, used for failure metrics and CycleError.
const (
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StageDecode  = "decode"
	StagePublish = "publish"
)

// ErrCycleInProgress is returned when a cycle is requested for a zone whose
// previous cycle is still running. The overlapping run is skipped, never
// queued.
var ErrCycleInProgress = errors.New("cycle already in progress")

// ErrUnknownZone is returned when a cycle is requested for a zone name that
// was never configured.
var ErrUnknownZone = errors.New("unknown zone")

// CycleError reports which stage of a zone cycle failed. The zone's
// published result and snapshot are untouched when a cycle fails.
type CycleError struct {
	Zone  string
	Stage string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("zone %s: %s stage failed: %v", e.Zone, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// ZoneResult is the complete outcome of one successful zone cycle: the
// reference point it was computed against, the delta set, and the
// aggregates. It is what publishers receive and what the HTTP surface
// serves.
type ZoneResult struct {
	Zone      string                `json:"zone"`
	Kind      domain.Kind           `json:"kind"`
	CycleTime time.Time             `json:"cycle_time"`
	Reference domain.ReferencePoint `json:"reference"`
	Deltas    ReconcileResult       `json:"deltas"`
	Stats     Stats                 `json:"stats"`
	Decoded   int                   `json:"decoded"`
	Skipped   int                   `json:"skipped,omitempty"`
	Dropped   int                   `json:"dropped,omitempty"` // age cut plus unfilterable
}

// Publisher receives each successful cycle's result. Publish failures fail
// the cycle, so the snapshot is not advanced and the deltas are re-derived
// (and re-delivered) next cycle.
type Publisher interface {
	Publish(ctx context.Context, result ZoneResult) error
}

// Decoder turns a raw feed payload into records. Satisfied by datex.Decode
// via DecodeFunc.
type Decoder interface {
	Decode(kind domain.Kind, data []byte) (records []domain.Record, skipped int, err error)
}

// DecodeFunc adapts a plain decode function to the Decoder interface.
type DecodeFunc func(kind domain.Kind, data []byte) ([]domain.Record, int, error)

// Decode implements Decoder.
func (f DecodeFunc) Decode(kind domain.Kind, data []byte) ([]domain.Record, int, error) {
	return f(kind, data)
}

// zoneState is the per-zone mutable state. mu serializes cycles for one
// zone; overlapping runs are skipped with TryLock rather than queued.
type zoneState struct {
	mu       sync.Mutex
	cfg      domain.Zone
	snapshot Snapshot
	failures atomic.Int64
	ranOnce  atomic.Bool
}

// Coordinator runs refresh cycles for a set of configured zones. Zones are
// independent: cycles for different zones may run concurrently, cycles for
// the same zone never do.
type Coordinator struct {
	fetcher  fetch.Fetcher
	decoder  Decoder
	resolver *geo.Resolver
	pub      Publisher
	logger   *slog.Logger
	metrics  *observability.Metrics

	cycleTimeout time.Duration

	mu    sync.RWMutex
	zones map[string]*zoneState
}

// NewCoordinator creates a Coordinator for the given zones. cycleTimeout
// bounds each cycle end to end; zero disables the bound.
func NewCoordinator(
	zones []domain.Zone,
	fetcher fetch.Fetcher,
	decoder Decoder,
	resolver *geo.Resolver,
	pub Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	cycleTimeout time.Duration,
) *Coordinator {
	states := make(map[string]*zoneState, len(zones))
	for _, z := range zones {
		states[z.Name] = &zoneState{cfg: z, snapshot: Snapshot{}}
	}
	metrics.ZonesConfigured.Set(float64(len(zones)))

	return &Coordinator{
		fetcher:      fetcher,
		decoder:      decoder,
		resolver:     resolver,
		pub:          pub,
		logger:       logger,
		metrics:      metrics,
		cycleTimeout: cycleTimeout,
		zones:        states,
	}
}

// ZoneNames returns the configured zone names in arbitrary order.
func (c *Coordinator) ZoneNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.zones))
	for name := range c.zones {
		names = append(names, name)
	}
	return names
}

// FailureStreak returns the number of consecutive failed cycles for a
// zone, 0 after a success or for an unknown zone.
func (c *Coordinator) FailureStreak(zoneName string) int {
	c.mu.RLock()
	st, ok := c.zones[zoneName]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return int(st.failures.Load())
}

// CheckReadiness returns nil once every configured zone has completed at
// least one successful cycle.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, st := range c.zones {
		if !st.ranOnce.Load() {
			return fmt.Errorf("zone %s has not completed a cycle yet", name)
		}
	}
	return nil
}

// RunCycle executes one refresh cycle for the named zone. If a cycle for
// that zone is still running, it returns ErrCycleInProgress without doing
// any work. On failure the zone's snapshot and published result are left
// exactly as the previous successful cycle produced them.
func (c *Coordinator) RunCycle(ctx context.Context, zoneName string) error {
	c.mu.RLock()
	st, ok := c.zones[zoneName]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zoneName)
	}

	if !st.mu.TryLock() {
		c.logger.Warn("cycle still running, skipping", "zone", zoneName)
		c.metrics.CyclesTotal.WithLabelValues(zoneName, "skipped").Inc()
		return ErrCycleInProgress
	}
	defer st.mu.Unlock()

	if c.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cycleTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.runLocked(ctx, st)
	c.metrics.CycleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		streak := st.failures.Add(1)
		c.metrics.CyclesTotal.WithLabelValues(zoneName, "failure").Inc()
		c.metrics.FailureStreak.WithLabelValues(zoneName).Set(float64(streak))
		var cerr *CycleError
		if errors.As(err, &cerr) {
			c.metrics.CycleFailures.WithLabelValues(zoneName, cerr.Stage).Inc()
		}
		c.logger.Error("cycle failed",
			"zone", zoneName,
			"error", err,
			"consecutive_failures", streak,
		)
		return err
	}

	st.failures.Store(0)
	st.ranOnce.Store(true)
	c.metrics.CyclesTotal.WithLabelValues(zoneName, "success").Inc()
	c.metrics.FailureStreak.WithLabelValues(zoneName).Set(0)
	c.metrics.RecordsRetained.WithLabelValues(zoneName).Set(float64(result.Stats.Total))

	c.logger.Info("cycle complete",
		"zone", zoneName,
		"retained", result.Stats.Total,
		"added", len(result.Deltas.Added),
		"updated", len(result.Deltas.Updated),
		"removed", len(result.Deltas.Removed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// runLocked performs the cycle stages with st.mu held. The snapshot is
// swapped only after the publisher accepted the result, so a publish
// failure re-delivers the same deltas on the next successful cycle.
func (c *Coordinator) runLocked(ctx context.Context, st *zoneState) (ZoneResult, error) {
	zone := st.cfg

	ref, err := c.resolver.Resolve(ctx, zone.Reference)
	if err != nil {
		return ZoneResult{}, &CycleError{Zone: zone.Name, Stage: StageResolve, Err: err}
	}

	payload, err := c.fetcher.Fetch(ctx, zone.FeedURL)
	if err != nil {
		return ZoneResult{}, &CycleError{Zone: zone.Name, Stage: StageFetch, Err: err}
	}

	records, skipped, err := c.decoder.Decode(zone.Kind, payload)
	if err != nil {
		return ZoneResult{}, &CycleError{Zone: zone.Name, Stage: StageDecode, Err: err}
	}
	c.metrics.RecordsDecoded.WithLabelValues(string(zone.Kind)).Add(float64(len(records)))
	c.metrics.RecordsSkipped.WithLabelValues(string(zone.Kind)).Add(float64(skipped))

	decoded := len(records)
	records, aged := cutByAge(records, zone.MaxAge)

	filtered := geo.Filter(ref, zone.RadiusKM, records)
	c.metrics.Unfilterable.WithLabelValues(zone.Name).Add(float64(filtered.Unfilterable))

	now := domain.Now()
	classified := make([]domain.Record, len(filtered.Records))
	for i, rec := range filtered.Records {
		rec.SeenAt = now
		classified[i] = domain.Classify(rec)
	}

	deltas := Reconcile(st.snapshot, classified, ReconcileOptions{
		DistanceEpsilonKM: zone.UpdateEpsilonKM,
		CompareSeverity:   zone.Kind == domain.KindIncident,
	})
	c.metrics.DeltasEmitted.WithLabelValues(zone.Name, "added").Add(float64(len(deltas.Added)))
	c.metrics.DeltasEmitted.WithLabelValues(zone.Name, "updated").Add(float64(len(deltas.Updated)))
	c.metrics.DeltasEmitted.WithLabelValues(zone.Name, "removed").Add(float64(len(deltas.Removed)))

	result := ZoneResult{
		Zone:      zone.Name,
		Kind:      zone.Kind,
		CycleTime: now,
		Reference: ref,
		Deltas:    deltas,
		Stats:     Aggregate(zone.Kind, classified),
		Decoded:   decoded,
		Skipped:   skipped,
		Dropped:   aged + filtered.Unfilterable,
	}

	if err := c.pub.Publish(ctx, result); err != nil {
		return ZoneResult{}, &CycleError{Zone: zone.Name, Stage: StagePublish, Err: err}
	}

	st.snapshot = NewSnapshot(classified)
	return result, nil
}

// cutByAge drops records whose creation time is older than maxAge. Records
// without a creation time are kept; only a known-old record is cut.
func cutByAge(records []domain.Record, maxAge time.Duration) ([]domain.Record, int) {
	if maxAge <= 0 {
		return records, 0
	}
	cutoff := domain.Now().Add(-maxAge)
	kept := records[:0]
	dropped := 0
	for _, rec := range records {
		if !rec.CreatedAt.IsZero() && rec.CreatedAt.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, dropped
}
