package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketBoundaries_AlignsDownAndIncludesEnd(t *testing.T) {
	start := time.Date(2025, 5, 13, 10, 7, 30, 0, time.UTC)
	end := time.Date(2025, 5, 13, 11, 0, 0, 0, time.UTC)

	got, err := BucketBoundaries(start, end, 15)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, time.Date(2025, 5, 13, 10, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, end, got[4])
}

func TestBucketBoundaries_PartialFinalBucket(t *testing.T) {
	got, err := BucketBoundaries(base, base.Add(50*time.Minute), 15)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, mins(45), got[3])
}

func TestComputeOccupancy_InvalidArguments(t *testing.T) {
	_, err := ComputeOccupancy(nil, ClassGate, base, mins(60), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ComputeOccupancy(nil, ClassGate, base, mins(60), -15)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ComputeOccupancy(nil, ClassGate, mins(60), base, 15)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestComputeOccupancy_EmptyClaimsAllZero(t *testing.T) {
	series, err := ComputeOccupancy(nil, ClassCounter, base, mins(60), 15)
	require.NoError(t, err)
	require.Len(t, series, 5)
	for _, s := range series {
		assert.Zero(t, s.Count)
	}
}

func TestComputeOccupancy_ClosedBoundaries(t *testing.T) {
	claims := []ResourceClaim{claim("a", "G01", 15, 45)}

	series, err := ComputeOccupancy(claims, ClassGate, base, mins(60), 15)
	require.NoError(t, err)

	counts := make([]int, len(series))
	for i, s := range series {
		counts[i] = s.Count
	}
	assert.Equal(t, []int{0, 1, 1, 1, 0}, counts)
}

func TestComputeOccupancy_SingleClaimProperty(t *testing.T) {
	c := claim("a", "G01", 7, 52)
	series, err := ComputeOccupancy([]ResourceClaim{c}, ClassGate, base, mins(120), 1)
	require.NoError(t, err)

	for _, s := range series {
		if c.Interval.ContainsClosed(s.BucketStart) {
			assert.GreaterOrEqual(t, s.Count, 1, s.BucketStart)
		} else {
			assert.Zero(t, s.Count, s.BucketStart)
		}
	}
}

func TestComputeOccupancy_HandoverCountsBoth(t *testing.T) {
	claims := []ResourceClaim{
		claim("a", "G01", 0, 30),
		claim("b", "G01", 30, 60),
	}
	assert.Empty(t, FindConflicts(claims))

	series, err := ComputeOccupancy(claims, ClassGate, base, mins(60), 30)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 2, series[1].Count)
}

func TestComputeOccupancy_FiltersClass(t *testing.T) {
	counter := claim("c", "01", 0, 60)
	counter.Class = ClassCounter
	claims := []ResourceClaim{claim("g", "G01", 0, 60), counter}

	series, err := ComputeOccupancy(claims, ClassCounter, base, mins(30), 15)
	require.NoError(t, err)
	for _, s := range series {
		assert.Equal(t, 1, s.Count)
	}
}

func TestAggregateToHourly_KeepsPeak(t *testing.T) {
	values := []int{1, 1, 3, 3, 6, 2}
	series := make([]OccupancySample, len(values))
	for i, v := range values {
		series[i] = OccupancySample{BucketStart: mins(i * 10), Count: v}
	}

	got := AggregateToHourly(series)
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Peak)
	assert.Equal(t, base, got[0].Hour)
	assert.Equal(t, "2025-05-13 10:00", got[0].Label)
}

func TestAggregateToHourly_NeverBelowFineMax(t *testing.T) {
	claims := []ResourceClaim{
		claim("a", "G01", 5, 20),
		claim("b", "G02", 10, 95),
		claim("c", "G03", 12, 14),
		claim("d", "G04", 70, 130),
		claim("e", "G05", 118, 119),
	}
	fine, err := ComputeOccupancy(claims, ClassGate, base, mins(180), 1)
	require.NoError(t, err)

	hourly := AggregateToHourly(fine)
	require.Len(t, hourly, 4)

	for _, h := range hourly {
		want := 0
		for _, s := range fine {
			if !s.BucketStart.Before(h.Hour) && s.BucketStart.Before(h.Hour.Add(time.Hour)) && s.Count > want {
				want = s.Count
			}
		}
		assert.Equal(t, want, h.Peak, h.Label)
	}
	assert.Equal(t, 3, hourly[0].Peak)
}

func TestAggregateToHourly_Empty(t *testing.T) {
	assert.Empty(t, AggregateToHourly(nil))
}

func TestHourlyAsSeries(t *testing.T) {
	got := HourlyAsSeries([]HourlyPeak{{Hour: base, Peak: 4}})
	require.Len(t, got, 1)
	assert.Equal(t, OccupancySample{BucketStart: base, Count: 4}, got[0])
}

func TestBucketBoundaries_RejectsOversizedSeries(t *testing.T) {
	from := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	_, err := BucketBoundaries(from, to, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ComputeOccupancy(nil, ClassGate, base, mins(MaxBuckets), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	got, err := BucketBoundaries(base, mins(MaxBuckets-1), 1)
	require.NoError(t, err)
	assert.Len(t, got, MaxBuckets)
}

func TestAggregateToHourly_RepeatedDSTHourStaysSplit(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	// 01:00 local happens twice on 2025-11-02: 05:00 UTC (EDT) and 06:00 UTC (EST)
	first := time.Date(2025, 11, 2, 5, 0, 0, 0, time.UTC)
	series := []OccupancySample{
		{BucketStart: first.In(loc), Count: 4},
		{BucketStart: first.Add(30 * time.Minute).In(loc), Count: 1},
		{BucketStart: first.Add(60 * time.Minute).In(loc), Count: 2},
		{BucketStart: first.Add(90 * time.Minute).In(loc), Count: 1},
	}

	got := AggregateToHourly(series)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Peak)
	assert.Equal(t, 2, got[1].Peak)
	assert.True(t, got[0].Hour.Equal(first))
	assert.True(t, got[1].Hour.Equal(first.Add(time.Hour)))
	assert.Equal(t, got[0].Label, got[1].Label)
}

func TestAggregateToHourly_HalfHourOffsetZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2025, 5, 13, 10, 0, 0, 0, ist)
	series := []OccupancySample{
		{BucketStart: start.Add(15 * time.Minute), Count: 2},
		{BucketStart: start.Add(45 * time.Minute), Count: 5},
	}

	got := AggregateToHourly(series)
	require.Len(t, got, 1)
	assert.True(t, got[0].Hour.Equal(start))
	assert.Equal(t, "2025-05-13 10:00", got[0].Label)
	assert.Equal(t, 5, got[0].Peak)
}
