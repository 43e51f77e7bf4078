// Package ipgeo estimates the host position from its public IP address. It
// is the coarse fallback when the device has no native position fix.
package ipgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vbonduro/wastecapture/internal/location"
)

const DefaultURL = "http://ip-api.com/json/"

type Fixer struct {
	url    string
	client *http.Client
}

func NewFixer(url string) *Fixer {
	if url == "" {
		url = DefaultURL
	}
	return &Fixer{url: url, client: &http.Client{}}
}

// response covers the common field spellings of IP geolocation services.
type response struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (f *Fixer) Fix(ctx context.Context) (*location.Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ip geolocation: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ip geolocation response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip geolocation returned status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("ip geolocation failed: %s", body.Message)
	}

	lat, lon := body.Lat, body.Lon
	if lat == nil || lon == nil {
		lat, lon = body.Latitude, body.Longitude
	}
	if lat == nil || lon == nil {
		return nil, fmt.Errorf("ip geolocation response has no coordinates")
	}
	return &location.Fix{Latitude: *lat, Longitude: *lon}, nil
}
