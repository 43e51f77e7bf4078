// Package nominatim reverse-geocodes coordinates with the OpenStreetMap
// Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vbonduro/wastecapture/internal/location"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim's usage policy requires an identifying User-Agent.
const DefaultUserAgent = "wastecapture/1.0"

type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewGeocoder(baseURL, userAgent string) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Geocoder{baseURL: baseURL, userAgent: userAgent, client: &http.Client{}}
}

type reverseResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber   string `json:"house_number"`
		Road          string `json:"road"`
		Street        string `json:"street"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		County        string `json:"county"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Province      string `json:"province"`
		Postcode      string `json:"postcode"`
		Country       string `json:"country"`
	} `json:"address"`
	Error string `json:"error"`
}

func (g *Geocoder) Reverse(ctx context.Context, latitude, longitude float64) (*location.Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call nominatim: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close nominatim response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, body)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("nominatim: %s", body.Error)
	}

	a := body.Address
	return &location.Place{
		Name:         body.Name,
		StreetNumber: a.HouseNumber,
		Street:       firstOf(a.Road, a.Street),
		District:     firstOf(a.Suburb, a.Neighbourhood),
		Subregion:    a.County,
		City:         firstOf(a.City, a.Town, a.Village),
		Region:       firstOf(a.State, a.Province),
		PostalCode:   a.Postcode,
		Country:      a.Country,
		DisplayName:  body.DisplayName,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
