package scheduling

import "time"

// CapacityRow flags one bucket whose demand exceeds the declared pool.
type CapacityRow struct {
	BucketStart  time.Time `json:"bucket_start"`
	Count        int       `json:"count"`
	OverCapacity bool      `json:"over_capacity"`
}

// CapacitySummary condenses an evaluated series.
type CapacitySummary struct {
	PoolSize    int       `json:"pool_size"`
	PeakCount   int       `json:"peak_count"`
	PeakAt      time.Time `json:"peak_at"`
	OverBuckets int       `json:"over_buckets"`
	Shortfall   int       `json:"shortfall"`
}

// EvaluateCapacity marks a bucket over capacity iff count > poolSize; a
// bucket exactly at the pool size is not over.
func EvaluateCapacity(series []OccupancySample, poolSize int) []CapacityRow {
	rows := make([]CapacityRow, len(series))
	for i, s := range series {
		rows[i] = CapacityRow{
			BucketStart:  s.BucketStart,
			Count:        s.Count,
			OverCapacity: s.Count > poolSize,
		}
	}
	return rows
}

// Summarize reports the first peak bucket, the number of buckets over
// capacity and the largest shortfall.
func Summarize(rows []CapacityRow, poolSize int) CapacitySummary {
	sum := CapacitySummary{PoolSize: poolSize}
	for i, r := range rows {
		if i == 0 || r.Count > sum.PeakCount {
			sum.PeakCount = r.Count
			sum.PeakAt = r.BucketStart
		}
		if r.OverCapacity {
			sum.OverBuckets++
		}
	}
	if sum.PeakCount > poolSize {
		sum.Shortfall = sum.PeakCount - poolSize
	}
	return sum
}
