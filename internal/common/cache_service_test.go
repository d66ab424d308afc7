package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCacheService_SetGet(t *testing.T) {
	c := NewCacheService(60, 120)

	c.Set("k", []cachedRow{{Name: "G01", Count: 2}}, time.Minute)

	var got []cachedRow
	require.True(t, c.Get("k", &got))
	assert.Equal(t, []cachedRow{{Name: "G01", Count: 2}}, got)

	got[0].Count = 99
	var again []cachedRow
	require.True(t, c.Get("k", &again))
	assert.Equal(t, 2, again[0].Count, "cached value must not alias the caller's copy")

	c.Delete("k")
	assert.False(t, c.Get("k", &again))
}

func TestGetOrLoad(t *testing.T) {
	c := NewCacheService(60, 120)
	calls := 0
	loader := func() (cachedRow, error) {
		calls++
		return cachedRow{Name: "peak", Count: calls}, nil
	}

	v, hit, err := GetOrLoad(c, "peak", time.Minute, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v.Count)

	v, hit, err = GetOrLoad(c, "peak", time.Minute, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v.Count)
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := NewCacheService(60, 120)
	boom := errors.New("boom")

	_, _, err := GetOrLoad(c, "k", time.Minute, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.ItemCount())
}
