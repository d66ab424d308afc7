package common

import "time"

// CacheInterface defines the contract for cache implementations. Values are
// stored JSON-encoded so both backends hand back an independent copy.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get decodes the cached value into dest.
	// Returns false when the key is missing or cannot be decoded.
	Get(key string, dest interface{}) bool

	// Delete removes a value from cache by key
	Delete(key string)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}

// GetOrLoad returns the cached value for key, or calls loader and caches its
// result. hit reports whether the value came from the cache.
func GetOrLoad[T any](c CacheInterface, key string, duration time.Duration, loader func() (T, error)) (val T, hit bool, err error) {
	if c.Get(key, &val) {
		return val, true, nil
	}

	val, err = loader()
	if err != nil {
		return val, false, err
	}

	c.Set(key, val, duration)
	return val, false, nil
}
