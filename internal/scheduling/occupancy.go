package scheduling

import (
	"fmt"
	"time"
)

// OccupancySample is the number of claims active at one bucket instant.
type OccupancySample struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
}

// HourlyPeak is the worst sample observed within one calendar hour.
type HourlyPeak struct {
	Hour  time.Time `json:"hour"`
	Label string    `json:"label"`
	Peak  int       `json:"peak"`
}

// HourLabelLayout formats the hour key of an aggregated series.
const HourLabelLayout = "2006-01-02 15:00"

// MaxBuckets bounds the length of one occupancy series.
const MaxBuckets = 10000

// alignBucket floors t to a bucket boundary within its hour, in t's location.
// Widths of an hour or more align to the top of the hour.
func alignBucket(t time.Time, bucketMinutes int) time.Time {
	m := (t.Minute() / bucketMinutes) * bucketMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, t.Location())
}

// BucketBoundaries steps bucketMinutes from the aligned range start through
// rangeEnd, including the last partial bucket.
func BucketBoundaries(rangeStart, rangeEnd time.Time, bucketMinutes int) ([]time.Time, error) {
	if bucketMinutes <= 0 {
		return nil, fmt.Errorf("%w: bucket width must be positive, got %d minutes", ErrInvalidArgument, bucketMinutes)
	}
	if err := (TimeRange{Start: rangeStart, End: rangeEnd}).Validate(); err != nil {
		return nil, err
	}

	step := time.Duration(bucketMinutes) * time.Minute
	first := alignBucket(rangeStart, bucketMinutes)
	if n := rangeEnd.Sub(first)/step + 1; n > MaxBuckets {
		return nil, fmt.Errorf("%w: %d buckets of %d minutes exceed the limit of %d", ErrInvalidArgument, n, bucketMinutes, MaxBuckets)
	}

	var out []time.Time
	for t := first; !t.After(rangeEnd); t = t.Add(step) {
		out = append(out, t)
	}
	return out, nil
}

// ComputeOccupancy counts, at each bucket instant t, the claims of class whose
// closed interval contains t. An instant on a handover boundary counts both
// the departing and the arriving claim, so a resource is never undercounted.
// An empty claim set yields an all-zero series.
func ComputeOccupancy(claims []ResourceClaim, class ResourceClass, rangeStart, rangeEnd time.Time, bucketMinutes int) ([]OccupancySample, error) {
	buckets, err := BucketBoundaries(rangeStart, rangeEnd, bucketMinutes)
	if err != nil {
		return nil, err
	}

	relevant := FilterClass(claims, class)
	series := make([]OccupancySample, len(buckets))
	for i, t := range buckets {
		n := 0
		for _, c := range relevant {
			if c.Interval.ContainsClosed(t) {
				n++
			}
		}
		series[i] = OccupancySample{BucketStart: t, Count: n}
	}
	return series, nil
}

// AggregateToHourly groups samples by clock hour and keeps the maximum.
// Peaks are never averaged away. Hours are keyed by instant, so a repeated
// wall-clock hour at a DST change stays two hours. Hours appear in order of
// first sample.
func AggregateToHourly(series []OccupancySample) []HourlyPeak {
	var out []HourlyPeak
	index := make(map[int64]int)

	for _, s := range series {
		hour := hourStart(s.BucketStart)
		i, ok := index[hour.UnixNano()]
		if !ok {
			index[hour.UnixNano()] = len(out)
			out = append(out, HourlyPeak{Hour: hour, Label: hour.Format(HourLabelLayout), Peak: s.Count})
			continue
		}
		if s.Count > out[i].Peak {
			out[i].Peak = s.Count
		}
	}
	return out
}

// hourStart is the instant the clock hour containing t began, in t's location.
func hourStart(t time.Time) time.Time {
	into := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return t.Add(-into)
}

// HourlyAsSeries turns hourly peaks back into samples keyed by hour start.
func HourlyAsSeries(peaks []HourlyPeak) []OccupancySample {
	out := make([]OccupancySample, len(peaks))
	for i, p := range peaks {
		out[i] = OccupancySample{BucketStart: p.Hour, Count: p.Peak}
	}
	return out
}
