// Package geo resolves request coordinates to a county name through the
// OpenStreetMap Nominatim API. It is a boundary wrapper: every failure
// mode collapses to the "unknown region" default so geocoding can never
// hold up or fail an analysis.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/fraud165/triage/pkg/httputil"
)

// UnknownRegion is returned whenever the lookup cannot produce a county.
const UnknownRegion = "未知地區"

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Reverser resolves coordinates to county names.
type Reverser interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

// NominatimReverser calls the Nominatim reverse endpoint. Nominatim's usage
// policy requires an identifying User-Agent.
type NominatimReverser struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatimReverser creates a reverser with the given User-Agent.
func NewNominatimReverser(userAgent string) *NominatimReverser {
	if userAgent == "" {
		userAgent = "fraud165-triage/1.0"
	}
	return &NominatimReverser{
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		client:    httputil.Client(httputil.TierFast),
	}
}

type reverseResponse struct {
	Address struct {
		County string `json:"county"`
		City   string `json:"city"`
	} `json:"address"`
}

// ReverseGeocode resolves (lat, lon) to a county name in zh-TW, preferring
// county over city and folding 臺 to 台 for consistent stats keys.
func (r *NominatimReverser) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	q := url.Values{
		"format":          {"json"},
		"lat":             {fmt.Sprintf("%f", lat)},
		"lon":             {fmt.Sprintf("%f", lon)},
		"accept-language": {"zh-TW"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return UnknownRegion
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[Geo] reverse lookup failed: %v", err)
		return UnknownRegion
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Geo] reverse lookup status %d", resp.StatusCode)
		return UnknownRegion
	}

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return UnknownRegion
	}
	var parsed reverseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("[Geo] unparseable reverse response: %v", err)
		return UnknownRegion
	}

	county := parsed.Address.County
	if county == "" {
		county = parsed.Address.City
	}
	if county == "" {
		log.Printf("[Geo] no county for (%f, %f)", lat, lon)
		return UnknownRegion
	}
	return strings.ReplaceAll(strings.TrimSpace(county), "臺", "台")
}
