package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type timeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA time zone name, defaults to UTC"`
}

type timeOutput struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

type convertInput struct {
	Value float64 `json:"value" jsonschema:"the temperature to convert"`
	To    string  `json:"to" jsonschema:"target unit, celsius or fahrenheit"`
}

type convertOutput struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// now is replaced in tests.
var now = time.Now

func newServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "chatrelay-tools", Version: "v1.0.0"},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_time",
		Description: "Returns the current time in the given time zone",
	}, getTime)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_temperature",
		Description: "Converts a temperature between celsius and fahrenheit",
	}, convertTemperature)

	return server
}

func getTime(_ context.Context, _ *mcp.CallToolRequest, in timeInput) (*mcp.CallToolResult, timeOutput, error) {
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, timeOutput{}, fmt.Errorf("unknown time zone %q", tz)
	}
	return nil, timeOutput{
		Time:     now().In(loc).Format(time.RFC3339),
		Timezone: tz,
	}, nil
}

func convertTemperature(_ context.Context, _ *mcp.CallToolRequest, in convertInput) (*mcp.CallToolResult, convertOutput, error) {
	var v float64
	switch in.To {
	case "celsius":
		v = (in.Value - 32) * 5 / 9
	case "fahrenheit":
		v = in.Value*9/5 + 32
	default:
		return nil, convertOutput{}, fmt.Errorf("to must be celsius or fahrenheit, got %q", in.To)
	}
	return nil, convertOutput{Value: math.Round(v*10) / 10, Unit: in.To}, nil
}
