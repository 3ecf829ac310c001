// Package weather provides the get_current_weather tool backed by the
// Open-Meteo geocoding and forecast APIs.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ErrLocationNotFound is returned when geocoding yields no match.
var ErrLocationNotFound = errors.New("location not found")

// Place is a geocoded location.
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is the current temperature at a place.
type Reading struct {
	Temperature float64
	Time        string
}

// Client talks to the Open-Meteo APIs.
type Client struct {
	GeocodingURL string
	ForecastURL  string
	HTTPClient   *http.Client
}

type geocodingResponse struct {
	Results []Place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature_2m"`
	} `json:"current"`
}

// Geocode resolves a free-form location name to coordinates.
func (c *Client) Geocode(ctx context.Context, name string) (Place, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var gr geocodingResponse
	if err := c.getJSON(ctx, c.GeocodingURL, q, &gr); err != nil {
		return Place{}, fmt.Errorf("geocoding %q: %w", name, err)
	}
	if len(gr.Results) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}
	return gr.Results[0], nil
}

// Current fetches the current temperature at the given coordinates in
// the given unit ("celsius" or "fahrenheit").
func (c *Client) Current(ctx context.Context, lat, lon float64, unit string) (Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m")
	q.Set("temperature_unit", unit)

	var fr forecastResponse
	if err := c.getJSON(ctx, c.ForecastURL, q, &fr); err != nil {
		return Reading{}, fmt.Errorf("fetching forecast: %w", err)
	}
	return Reading{Temperature: fr.Current.Temperature, Time: fr.Current.Time}, nil
}

func (c *Client) getJSON(ctx context.Context, base string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
