// Package nutrientdata - usda.go talks to the USDA FoodData Central API.
package nutrientdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"nutriswap/internal/domain/entities"
	"nutriswap/internal/domain/ports"
)

const defaultBaseURL = "https://api.nal.usda.gov/fdc/v1"

// FDC nutrient numbers for the fields FoodRecord carries.
const (
	numProtein  = "203"
	numFat      = "204"
	numCarbs    = "205"
	numCalories = "208"
	numSugar    = "269"
	numFiber    = "291"
)

// USDAClient implements ports.NutrientSource against FoodData Central.
// Every request goes through the injected ResponseCache: a hit returns
// the stored raw body without touching the network, a miss performs
// exactly one request and stores the raw body under the same key.
// Concurrent misses for one key are collapsed with singleflight, so the
// provider sees at most one in-flight request per key. Failures are
// surfaced as *ports.DataProviderError and never cached.
type USDAClient struct {
	baseURL string
	apiKey  string
	cache   *ResponseCache
	client  *http.Client
	group   singleflight.Group
}

// NewUSDAClient creates a FoodData Central client. cache may be nil, in
// which case every lookup goes to the network.
func NewUSDAClient(baseURL, apiKey string, cache *ResponseCache) *USDAClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &USDAClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		cache:   cache,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// searchResponse is the subset of the FDC search payload we consume.
type searchResponse struct {
	Foods []struct {
		FDCID       int64  `json:"fdcId"`
		Description string `json:"description"`
	} `json:"foods"`
}

// foodResponse is the subset of the FDC food-detail payload we consume.
type foodResponse struct {
	FDCID         int64  `json:"fdcId"`
	Description   string `json:"description"`
	FoodNutrients []struct {
		Nutrient struct {
			Number string `json:"number"`
		} `json:"nutrient"`
		Amount float64 `json:"amount"`
	} `json:"foodNutrients"`
}

// SearchFoods finds foods matching a free-text query. Results carry the
// external id and name; use FoodDetails for the full nutrient profile.
func (c *USDAClient) SearchFoods(ctx context.Context, query string, limit int) ([]entities.FoodRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("query", normalizeQuery(query))
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("dataType", "Survey (FNDDS)")

	body, err := c.fetch(ctx, "search", "/foods/search", params)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ports.DataProviderError{Op: "search", Key: cacheKey("search", params), Err: fmt.Errorf("decoding response: %w", err)}
	}

	records := make([]entities.FoodRecord, len(parsed.Foods))
	for i, f := range parsed.Foods {
		records[i] = entities.FoodRecord{
			ID:   strconv.FormatInt(f.FDCID, 10),
			Name: f.Description,
		}
	}
	return records, nil
}

// FoodDetails fetches the full nutrient profile for an FDC id. Nutrients
// absent from the response stay zero.
func (c *USDAClient) FoodDetails(ctx context.Context, id string) (entities.FoodRecord, error) {
	params := url.Values{}
	params.Set("fdcId", id)

	body, err := c.fetch(ctx, "food", "/food/"+url.PathEscape(id), params)
	if err != nil {
		return entities.FoodRecord{}, err
	}

	var parsed foodResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return entities.FoodRecord{}, &ports.DataProviderError{Op: "food", Key: cacheKey("food", params), Err: fmt.Errorf("decoding response: %w", err)}
	}

	record := entities.FoodRecord{
		ID:   strconv.FormatInt(parsed.FDCID, 10),
		Name: parsed.Description,
	}
	for _, n := range parsed.FoodNutrients {
		switch n.Nutrient.Number {
		case numProtein:
			record.Protein = n.Amount
		case numCarbs:
			record.Carbs = n.Amount
		case numFat:
			record.Fat = n.Amount
		case numCalories:
			record.Calories = n.Amount
		case numFiber:
			record.Fiber = n.Amount
		case numSugar:
			record.Sugar = n.Amount
		}
	}
	return record.Normalize(), nil
}

// fetch returns the raw response body for one provider call, consulting
// the cache first. params must already be normalized: they are the cache
// key. The api key is attached to the request only, never the key.
func (c *USDAClient) fetch(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	key := cacheKey(op, params)

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			return nil, &ports.DataProviderError{Op: op, Key: key, Err: err}
		}
		if ok {
			return body, nil
		}
	}

	body, err, _ := c.group.Do(key, func() (interface{}, error) {
		body, err := c.request(ctx, path, params)
		if err != nil {
			return nil, err // Failures are never cached.
		}
		if c.cache != nil {
			if err := c.cache.Put(ctx, key, body); err != nil {
				return nil, err
			}
		}
		return body, nil
	})
	if err != nil {
		return nil, &ports.DataProviderError{Op: op, Key: key, Err: err}
	}
	return body.([]byte), nil
}

// request performs the HTTP round trip.
func (c *USDAClient) request(ctx context.Context, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, vs := range params {
		if k == "fdcId" {
			continue // Path parameter, kept in the key only.
		}
		query[k] = vs
	}
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}
