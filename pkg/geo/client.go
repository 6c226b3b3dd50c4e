// Package geo fetches reference location data from RestCountries and GeoDB Cities.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Country is one entry of the RestCountries listing
type Country struct {
	Name string
	Code string // ISO 3166-1 alpha-2
}

// City is one GeoDB city with the region it belongs to
type City struct {
	Name      string
	Region    string
	Latitude  *float64
	Longitude *float64
}

// Config holds configuration for the geo client
type Config struct {
	RestCountriesURL string // e.g. https://restcountries.com/v3.1/all
	GeoDBURL         string // e.g. https://wft-geo-db.p.rapidapi.com/v1/geo/cities
	GeoDBHost        string
	GeoDBAPIKey      string
	MinPopulation    int
	Timeout          time.Duration
}

// Client calls the external location APIs
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a new geo client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchCountries returns every country with a common name and alpha-2 code, sorted by name
func (c *Client) FetchCountries(ctx context.Context) ([]Country, error) {
	body, err := c.get(ctx, c.config.RestCountriesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		return nil, fmt.Errorf("failed to fetch countries: unexpected response body")
	}

	countries := []Country{}
	gjson.ParseBytes(body).ForEach(func(_, value gjson.Result) bool {
		name := value.Get("name.common").String()
		code := value.Get("cca2").String()
		if name != "" && code != "" {
			countries = append(countries, Country{Name: name, Code: code})
		}
		return true
	})

	sort.SliceStable(countries, func(i, j int) bool {
		return countries[i].Name < countries[j].Name
	})
	return countries, nil
}

// FetchCities returns the country's cities above the configured population, largest first
func (c *Client) FetchCities(ctx context.Context, countryCode string) ([]City, error) {
	params := url.Values{}
	params.Set("countryIds", countryCode)
	params.Set("minPopulation", strconv.Itoa(c.config.MinPopulation))
	params.Set("types", "CITY")
	params.Set("sort", "-population")

	headers := map[string]string{
		"X-RapidAPI-Key":  c.config.GeoDBAPIKey,
		"X-RapidAPI-Host": c.config.GeoDBHost,
	}

	body, err := c.get(ctx, c.config.GeoDBURL+"?"+params.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cities of %s: %w", countryCode, err)
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("failed to fetch cities of %s: response has no data array", countryCode)
	}

	cities := []City{}
	data.ForEach(func(_, value gjson.Result) bool {
		city := City{
			Name:   value.Get("city").String(),
			Region: value.Get("region").String(),
		}
		if lat := value.Get("latitude"); lat.Exists() {
			v := lat.Float()
			city.Latitude = &v
		}
		if lon := value.Get("longitude"); lon.Exists() {
			v := lon.Float()
			city.Longitude = &v
		}
		if city.Name != "" && city.Region != "" {
			cities = append(cities, city)
		}
		return true
	})

	return cities, nil
}

func (c *Client) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
