package constants

import "time"

type (
	APIStatus    string
	CachePrefix  string
	ChangeEvent  string
	MutationKind string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixOccupancy CachePrefix = "OCC_"
	CachePrefixCapacity  CachePrefix = "CAP_"
	CachePrefixDensity   CachePrefix = "DENSITY_"

	ChangeInsert ChangeEvent = "INSERT"
	ChangeUpdate ChangeEvent = "UPDATE"
	ChangeDelete ChangeEvent = "DELETE"

	MutationGate     MutationKind = "gate"
	MutationCheckins MutationKind = "checkin_data"
)

const (
	// ImportChunkSize bounds one bulk insert round trip.
	ImportChunkSize = 100
	// DefaultZoom is the board's initial pixels-per-minute factor.
	DefaultZoom = 3.0
	// DefaultBucketMinutes is the fine occupancy resolution.
	DefaultBucketMinutes = 15
	// MaxWindowSpan bounds the view window, and with it one snapshot load.
	MaxWindowSpan = 14 * 24 * time.Hour
)
