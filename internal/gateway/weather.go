package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Conditions is the current-weather payload attached to weather turns.
type Conditions struct {
	Location struct {
		Name      string `json:"name"`
		Country   string `json:"country"`
		Region    string `json:"region"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current struct {
		Temperature  int      `json:"temperature"`
		Descriptions []string `json:"weather_descriptions"`
		WindSpeed    int      `json:"wind_speed"`
		WindDir      string   `json:"wind_dir"`
		Humidity     int      `json:"humidity"`
		FeelsLike    int      `json:"feelslike"`
		UVIndex      int      `json:"uv_index"`
		Visibility   int      `json:"visibility"`
		Pressure     int      `json:"pressure"`
	} `json:"current"`
}

// Weather fetches current conditions from a weatherstack-style API.
type Weather struct {
	client *resty.Client
	apiKey string
}

// NewWeather creates the weather adapter.
func NewWeather(endpoint, apiKey string) *Weather {
	return &Weather{client: newClient(endpoint), apiKey: apiKey}
}

// weatherError is the provider's in-band error envelope; the API answers
// 200 OK even for bad requests and signals failure in the body.
type weatherError struct {
	Error *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Current returns conditions for a location, or nil when the provider has
// no data for it.
func (w *Weather) Current(ctx context.Context, location string) (*Conditions, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("access_key", w.apiKey).
		SetQueryParam("query", location).
		Get("/current")
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("weather status %d", resp.StatusCode())
	}

	var envelope weatherError
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil && envelope.Error != nil {
		return nil, fmt.Errorf("weather provider error %d: %s", envelope.Error.Code, envelope.Error.Info)
	}

	var cond Conditions
	if err := json.Unmarshal(resp.Body(), &cond); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	if cond.Location.Name == "" {
		return nil, nil
	}
	return &cond, nil
}
