package services

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/metrics"
	"infinite-experiment/dispatchboard/internal/scheduling"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SnapshotSource is the read side of the dispatch service.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// OccupancyQuery selects the series to compute. Zero Start/End default to
// the snapshot window, and any range must lie inside it; zero BucketMinutes
// defaults to 15.
type OccupancyQuery struct {
	Class         scheduling.ResourceClass
	Start         time.Time
	End           time.Time
	BucketMinutes int
	Hourly        bool
	// IncludeUnassigned counts every flight's gate interval, assigned or
	// not. Ignored for counters.
	IncludeUnassigned bool
}

type OccupancyResult struct {
	Class         scheduling.ResourceClass     `json:"class"`
	Start         time.Time                    `json:"start"`
	End           time.Time                    `json:"end"`
	BucketMinutes int                          `json:"bucket_minutes"`
	Demand        bool                         `json:"demand"`
	Series        []scheduling.OccupancySample `json:"series"`
	Hourly        []scheduling.HourlyPeak      `json:"hourly,omitempty"`
}

type CapacityResult struct {
	Class   scheduling.ResourceClass   `json:"class"`
	Rows    []scheduling.CapacityRow   `json:"rows"`
	Summary scheduling.CapacitySummary `json:"summary"`
}

type PeakResult struct {
	Gate    CapacityResult `json:"gate"`
	Counter CapacityResult `json:"counter"`
}

// AnalysisService runs the occupancy, capacity and density analyzers over
// dispatch snapshots. Results are cached per snapshot version, so any change
// to the board makes earlier entries unreachable.
type AnalysisService struct {
	source   SnapshotSource
	cache    common.CacheInterface
	ttl      time.Duration
	metrics  *metrics.MetricsRegistry
	instance string
}

func NewAnalysisService(source SnapshotSource, cache common.CacheInterface, ttl time.Duration, metricsReg *metrics.MetricsRegistry) *AnalysisService {
	return &AnalysisService{
		source:   source,
		cache:    cache,
		ttl:      ttl,
		metrics:  metricsReg,
		instance: uuid.NewString(),
	}
}

// Occupancy computes the fine series and, when asked, its hourly peaks.
func (s *AnalysisService) Occupancy(ctx context.Context, q OccupancyQuery) (OccupancyResult, error) {
	if err := ctx.Err(); err != nil {
		return OccupancyResult{}, err
	}
	snap := s.source.Snapshot()
	q = withDefaults(q, snap)
	if err := validateQuery(q, snap); err != nil {
		return OccupancyResult{}, err
	}

	key := s.key(constants.CachePrefixOccupancy, snap.Version, q)
	return cached(s, constants.CachePrefixOccupancy, key, func() (OccupancyResult, error) {
		return s.occupancy(snap, q)
	})
}

func (s *AnalysisService) occupancy(snap Snapshot, q OccupancyQuery) (OccupancyResult, error) {
	defer s.observe("occupancy", time.Now())

	demand := q.IncludeUnassigned && q.Class == scheduling.ClassGate
	var claims []scheduling.ResourceClaim
	if demand {
		claims = scheduling.GateDemandClaims(snap.ClaimFlights(), snap.Buffer)
	} else {
		claims = scheduling.DeriveAllClaims(snap.ClaimFlights(), snap.Buffer)
	}

	series, err := scheduling.ComputeOccupancy(claims, q.Class, q.Start, q.End, q.BucketMinutes)
	if err != nil {
		return OccupancyResult{}, err
	}

	res := OccupancyResult{
		Class:         q.Class,
		Start:         q.Start,
		End:           q.End,
		BucketMinutes: q.BucketMinutes,
		Demand:        demand,
		Series:        series,
	}
	if q.Hourly {
		res.Hourly = scheduling.AggregateToHourly(series)
	}
	return res, nil
}

// Capacity evaluates the occupancy series against the pool size of the
// class. With Hourly set the hourly peaks are evaluated instead of the fine
// buckets.
func (s *AnalysisService) Capacity(ctx context.Context, q OccupancyQuery) (CapacityResult, error) {
	if err := ctx.Err(); err != nil {
		return CapacityResult{}, err
	}
	snap := s.source.Snapshot()
	q = withDefaults(q, snap)
	if err := validateQuery(q, snap); err != nil {
		return CapacityResult{}, err
	}

	key := s.key(constants.CachePrefixCapacity, snap.Version, q)
	return cached(s, constants.CachePrefixCapacity, key, func() (CapacityResult, error) {
		return s.capacity(snap, q)
	})
}

func (s *AnalysisService) capacity(snap Snapshot, q OccupancyQuery) (CapacityResult, error) {
	occ, err := s.occupancy(snap, q)
	if err != nil {
		return CapacityResult{}, err
	}
	defer s.observe("capacity", time.Now())

	series := occ.Series
	if q.Hourly {
		series = scheduling.HourlyAsSeries(occ.Hourly)
	}

	poolSize := snap.Pool.Size(q.Class)
	rows := scheduling.EvaluateCapacity(series, poolSize)
	return CapacityResult{
		Class:   q.Class,
		Rows:    rows,
		Summary: scheduling.Summarize(rows, poolSize),
	}, nil
}

// Peak evaluates gate and counter capacity over the same range concurrently.
// Both classes see the same snapshot.
func (s *AnalysisService) Peak(ctx context.Context, start, end time.Time, bucketMinutes int, hourly bool) (PeakResult, error) {
	snap := s.source.Snapshot()
	g, _ := errgroup.WithContext(ctx)

	var res PeakResult
	for _, class := range []scheduling.ResourceClass{scheduling.ClassGate, scheduling.ClassCounter} {
		class := class
		q := withDefaults(OccupancyQuery{
			Class:         class,
			Start:         start,
			End:           end,
			BucketMinutes: bucketMinutes,
			Hourly:        hourly,
		}, snap)
		g.Go(func() error {
			if err := validateQuery(q, snap); err != nil {
				return err
			}
			key := s.key(constants.CachePrefixCapacity, snap.Version, q)
			out, err := cached(s, constants.CachePrefixCapacity, key, func() (CapacityResult, error) {
				return s.capacity(snap, q)
			})
			if err != nil {
				return err
			}
			if class == scheduling.ClassGate {
				res.Gate = out
			} else {
				res.Counter = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return PeakResult{}, err
	}
	return res, nil
}

// Density buckets the snapshot's flights by date and hour of operative time.
func (s *AnalysisService) Density(ctx context.Context, start, end time.Time) (scheduling.DensityMatrix, error) {
	if err := ctx.Err(); err != nil {
		return scheduling.DensityMatrix{}, err
	}
	snap := s.source.Snapshot()
	q := withDefaults(OccupancyQuery{Start: start, End: end}, snap)
	if err := validateRange(q, snap); err != nil {
		return scheduling.DensityMatrix{}, err
	}

	key := s.key(constants.CachePrefixDensity, snap.Version, q)
	return cached(s, constants.CachePrefixDensity, key, func() (scheduling.DensityMatrix, error) {
		defer s.observe("density", time.Now())
		return scheduling.ComputeDensity(snap.Flights, scheduling.TimeRange{Start: q.Start, End: q.End})
	})
}

func (s *AnalysisService) key(prefix constants.CachePrefix, version uint64, q OccupancyQuery) string {
	return fmt.Sprintf("%s%s:%d:%s:%d:%d:%d:%t:%t",
		prefix, s.instance, version, q.Class,
		q.Start.Unix(), q.End.Unix(), q.BucketMinutes, q.Hourly, q.IncludeUnassigned)
}

func (s *AnalysisService) observe(operation string, start time.Time) {
	s.metrics.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func cached[T any](s *AnalysisService, prefix constants.CachePrefix, key string, load func() (T, error)) (T, error) {
	val, hit, err := common.GetOrLoad(s.cache, key, s.ttl, load)
	if err != nil {
		return val, err
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues(string(prefix)).Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues(string(prefix)).Inc()
	}
	return val, nil
}

func withDefaults(q OccupancyQuery, snap Snapshot) OccupancyQuery {
	if q.Start.IsZero() {
		q.Start = snap.Window.Start
	}
	if q.End.IsZero() {
		q.End = snap.Window.End
	}
	if q.BucketMinutes == 0 {
		q.BucketMinutes = constants.DefaultBucketMinutes
	}
	return q
}

func validateQuery(q OccupancyQuery, snap Snapshot) error {
	if err := validateRange(q, snap); err != nil {
		return err
	}
	if q.Class != scheduling.ClassGate && q.Class != scheduling.ClassCounter {
		return fmt.Errorf("%w: unknown resource class %q", scheduling.ErrInvalidArgument, q.Class)
	}
	return nil
}

// validateRange rejects ranges the snapshot holds no flights for; an
// all-zero series there would read as spare capacity.
func validateRange(q OccupancyQuery, snap Snapshot) error {
	if q.Start.IsZero() || q.End.IsZero() || snap.Window.Start.IsZero() {
		return ErrNoWindow
	}
	if q.Start.Before(snap.Window.Start) || q.End.After(snap.Window.End) {
		return fmt.Errorf("%w: range %s - %s is outside the loaded window %s - %s", scheduling.ErrInvalidArgument,
			q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339),
			snap.Window.Start.Format(time.RFC3339), snap.Window.End.Format(time.RFC3339))
	}
	return nil
}
