package weather

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/tools"
)

// ToolName is the name the model calls the tool by.
const ToolName = "get_current_weather"

// Units accepted by the tool.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
)

// Config configures the tool's backend.
type Config struct {
	GeocodingURL string
	ForecastURL  string
	Timeout      time.Duration
}

// Args are the arguments of a get_current_weather call.
type Args struct {
	Location string `json:"location"`
	Unit     string `json:"unit,omitempty"`
}

// Result is returned to the model.
type Result struct {
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Time        string  `json:"time"`
}

// Parameters is the JSON schema of Args.
func Parameters() *jsonschema.Schema {
	return tools.ObjectSchema(map[string]*jsonschema.Schema{
		"location": {
			Type:        "string",
			Description: "The city and country, e.g. Paris, France",
		},
		"unit": {
			Type:        "string",
			Description: "Temperature unit",
			Enum:        []any{UnitCelsius, UnitFahrenheit},
		},
	}, "location")
}

// New returns the get_current_weather tool.
func New(cfg Config) tools.Tool {
	c := &Client{
		GeocodingURL: cfg.GeocodingURL,
		ForecastURL:  cfg.ForecastURL,
		HTTPClient:   &http.Client{Timeout: cfg.Timeout},
	}
	return tools.Tool{
		Definition: tools.Definition{
			Name:        ToolName,
			Description: "Get the current weather at a location",
			Parameters:  Parameters(),
		},
		Handler: tools.Typed(c.lookup),
		Source:  "builtin",
	}
}

func (c *Client) lookup(ctx context.Context, args Args) (any, error) {
	unit := strings.ToLower(args.Unit)
	if unit == "" {
		unit = UnitCelsius
	}

	place, err := c.Geocode(ctx, args.Location)
	if err != nil {
		return nil, err
	}
	debug.Log("tools", "geocoded location", "query", args.Location, "name", place.Name, "lat", place.Latitude, "lon", place.Longitude)

	reading, err := c.Current(ctx, place.Latitude, place.Longitude, unit)
	if err != nil {
		return nil, err
	}

	name := place.Name
	if place.Country != "" {
		name += ", " + place.Country
	}
	return Result{
		Location:    name,
		Latitude:    place.Latitude,
		Longitude:   place.Longitude,
		Temperature: reading.Temperature,
		Unit:        unit,
		Time:        reading.Time,
	}, nil
}
