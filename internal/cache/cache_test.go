package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("media", "https://cdn.example.com/a.jpg")
	b := CacheKey("media", "https://cdn.example.com/a.jpg")
	c := CacheKey("report", "https://cdn.example.com/a.jpg")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "unearth:v1:media:"))
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	v := []byte("abc")
	require.NoError(t, c.Set("k", v, 0))
	v[0] = 'z'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := c.Get("k")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("media", "x")

	require.NoError(t, c.Set(key, []byte("payload"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = c.Get(key)
	assert.False(t, ok, "entry should be expired")

	assert.NoError(t, c.Delete(key), "deleting a missing entry is not an error")
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(mem, disk)

	require.NoError(t, disk.Set("k", []byte("v"), 0))
	_, ok := mem.Get("k")
	require.False(t, ok)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	_, ok = mem.Get("k")
	assert.True(t, ok, "disk hit should be promoted to memory")

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	type entry struct {
		MediaType string `json:"mediaType"`
		Size      int    `json:"size"`
	}

	c := NewMediaCache("", time.Minute)
	require.NoError(t, SetJSON(c, "k", entry{MediaType: "image/png", Size: 3}, 0))

	got, ok := GetJSON[entry](c, "k")
	require.True(t, ok)
	assert.Equal(t, entry{MediaType: "image/png", Size: 3}, got)

	_, ok = GetJSON[entry](c, "missing")
	assert.False(t, ok)
}
