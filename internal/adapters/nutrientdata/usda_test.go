package nutrientdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriswap/internal/domain/ports"
)

const sampleSearchBody = `{"foods":[
	{"fdcId":171477,"description":"Chicken breast, skinless"},
	{"fdcId":170567,"description":"Salmon, Atlantic, cooked"}
]}`

const sampleFoodBody = `{"fdcId":171477,"description":"Chicken breast, skinless","foodNutrients":[
	{"nutrient":{"number":"203"},"amount":31},
	{"nutrient":{"number":"204"},"amount":3.6},
	{"nutrient":{"number":"205"},"amount":0},
	{"nutrient":{"number":"208"},"amount":165},
	{"nutrient":{"number":"999"},"amount":42}
]}`

// fdcServer fakes the two FoodData Central endpoints and counts hits.
func fdcServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NotEmpty(t, r.URL.Query().Get("api_key"))
		switch r.URL.Path {
		case "/foods/search":
			fmt.Fprint(w, sampleSearchBody)
		case "/food/171477":
			fmt.Fprint(w, sampleFoodBody)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newCache(t *testing.T) *ResponseCache {
	t.Helper()
	cache, err := NewResponseCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestUSDAClient_SearchFoods(t *testing.T) {
	var calls atomic.Int64
	server := fdcServer(t, &calls)
	defer server.Close()

	client := NewUSDAClient(server.URL, "test-key", nil)
	records, err := client.SearchFoods(context.Background(), "chicken breast", 5)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "171477", records[0].ID)
	assert.Equal(t, "Chicken breast, skinless", records[0].Name)
}

func TestUSDAClient_FoodDetails(t *testing.T) {
	var calls atomic.Int64
	server := fdcServer(t, &calls)
	defer server.Close()

	client := NewUSDAClient(server.URL, "test-key", nil)
	food, err := client.FoodDetails(context.Background(), "171477")
	require.NoError(t, err)

	assert.Equal(t, "171477", food.ID)
	assert.Equal(t, 31.0, food.Protein)
	assert.Equal(t, 3.6, food.Fat)
	assert.Equal(t, 165.0, food.Calories)
	// Nutrients absent from the payload stay zero; unknown numbers are ignored.
	assert.Zero(t, food.Carbs)
	assert.Zero(t, food.Fiber)
	assert.Zero(t, food.Sugar)
}

func TestUSDAClient_CacheCollapsesIdenticalLookups(t *testing.T) {
	var calls atomic.Int64
	server := fdcServer(t, &calls)
	defer server.Close()

	client := NewUSDAClient(server.URL, "test-key", newCache(t))
	ctx := context.Background()

	_, err := client.SearchFoods(ctx, "chicken breast", 5)
	require.NoError(t, err)
	_, err = client.SearchFoods(ctx, "chicken breast", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// A different key is a miss.
	_, err = client.FoodDetails(ctx, "171477")
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestUSDAClient_CacheKeyNormalizesQueryText(t *testing.T) {
	var calls atomic.Int64
	server := fdcServer(t, &calls)
	defer server.Close()

	client := NewUSDAClient(server.URL, "test-key", newCache(t))
	ctx := context.Background()

	_, err := client.SearchFoods(ctx, "Chicken  Breast", 5)
	require.NoError(t, err)
	_, err = client.SearchFoods(ctx, "  chicken breast ", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestUSDAClient_CachePersistsAcrossClients(t *testing.T) {
	var calls atomic.Int64
	server := fdcServer(t, &calls)
	defer server.Close()

	dir := t.TempDir()
	ctx := context.Background()

	cache, err := NewResponseCache(dir)
	require.NoError(t, err)
	client := NewUSDAClient(server.URL, "test-key", cache)
	_, err = client.SearchFoods(ctx, "chicken breast", 5)
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	// A fresh client over the same cache directory serves the hit
	// without a network round trip.
	reopened, err := NewResponseCache(dir)
	require.NoError(t, err)
	defer reopened.Close()

	client = NewUSDAClient(server.URL, "test-key", reopened)
	records, err := client.SearchFoods(ctx, "chicken breast", 5)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int64(1), calls.Load())
}

func TestUSDAClient_FailuresSurfaceAndAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sampleSearchBody)
	}))
	defer server.Close()

	client := NewUSDAClient(server.URL, "test-key", newCache(t))
	ctx := context.Background()

	_, err := client.SearchFoods(ctx, "chicken breast", 5)
	require.Error(t, err)

	var provErr *ports.DataProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "search", provErr.Op)
	assert.Contains(t, provErr.Key, "chicken")

	// The failure must not have poisoned the cache: once the provider
	// recovers, the same key goes back out and succeeds.
	fail.Store(false)
	records, err := client.SearchFoods(ctx, "chicken breast", 5)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int64(2), calls.Load())
}
