// Package places implements a providers.PlacesClient against a Google
// Places-style Text Search API over plain HTTP.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

const defaultBaseURL = "https://places.googleapis.com/v1/places:searchText"

// Client implements providers.PlacesClient over the Places Text Search API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client authenticated with apiKey.
func New(apiKey string) *Client {
	return &Client{APIKey: apiKey, BaseURL: defaultBaseURL, HTTP: &http.Client{}}
}

type searchTextRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount,omitempty"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating        float64  `json:"rating"`
	Types         []string `json:"types"`
	GoogleMapsURI string   `json:"googleMapsUri"`
}

// Search queries the Places API for query and maps each result into a
// partially-filled Candidate (origin/confidence/score are assigned later by
// the normalizer). Results are deduped by place ID before returning, per
// the worker-level dedupe contract.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	body, err := json.Marshal(searchTextRequest{TextQuery: query, MaxResultCount: maxResults})
	if err != nil {
		return nil, fmt.Errorf("places: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("places: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.APIKey)
	req.Header.Set("X-Goog-FieldMask", "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.types,places.googleMapsUri")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("places: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("places: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed searchTextResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("places: parse response: %w", err)
	}

	seen := make(map[string]bool, len(parsed.Places))
	candidates := make([]domain.Candidate, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		candidates = append(candidates, toCandidate(p))
	}
	return candidates, nil
}

func toCandidate(p place) domain.Candidate {
	c := domain.Candidate{
		Type:         domain.CandidateTypePlace,
		Title:        p.DisplayName.Text,
		LocationText: p.FormattedAddress,
		Tags:         p.Types,
		Metadata:     domain.Metadata{"placeId": p.ID, "rating": p.Rating},
	}
	if p.Location.Latitude != 0 || p.Location.Longitude != 0 {
		c.Coordinates = &domain.Coordinates{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	}
	if p.GoogleMapsURI != "" {
		c.SourceRefs = []domain.SourceRef{{URL: p.GoogleMapsURI, Publisher: "Google Maps"}}
	}
	return c
}

func (c *Client) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
