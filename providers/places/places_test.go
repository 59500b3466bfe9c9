package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch_MapsPlacesResponseIntoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("expected api key header to be set, got %q", r.Header.Get("X-Goog-Api-Key"))
		}
		w.Write([]byte(`{"places":[
			{"id":"p1","displayName":{"text":"Louvre"},"formattedAddress":"Paris, France","location":{"latitude":48.86,"longitude":2.33},"rating":4.7,"types":["museum"],"googleMapsUri":"https://maps.example.com/p1"},
			{"id":"p2","displayName":{"text":"Cafe Sans Coords"},"formattedAddress":"Paris, France"}
		]}`))
	}))
	defer srv.Close()

	client := &Client{APIKey: "test-key", BaseURL: srv.URL, HTTP: srv.Client()}
	candidates, err := client.Search(context.Background(), "museums in paris", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "Louvre" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
	if candidates[0].Coordinates == nil || candidates[0].Coordinates.Lat != 48.86 {
		t.Fatalf("expected coordinates to be populated, got %+v", candidates[0].Coordinates)
	}
	if candidates[1].Coordinates != nil {
		t.Fatalf("expected no coordinates when lat/lng are both zero, got %+v", candidates[1].Coordinates)
	}
	if candidates[0].Metadata["placeId"] != "p1" {
		t.Fatalf("expected placeId in metadata, got %+v", candidates[0].Metadata)
	}
}

func TestSearch_DedupesByPlaceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"places":[
			{"id":"p1","displayName":{"text":"Louvre"}},
			{"id":"p1","displayName":{"text":"Louvre Duplicate"}}
		]}`))
	}))
	defer srv.Close()

	client := &Client{APIKey: "k", BaseURL: srv.URL, HTTP: srv.Client()}
	candidates, err := client.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected duplicate place ids collapsed to 1, got %d", len(candidates))
	}
}

func TestSearch_NonOKStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := &Client{APIKey: "k", BaseURL: srv.URL, HTTP: srv.Client()}
	if _, err := client.Search(context.Background(), "q", 10); err == nil {
		t.Fatalf("expected a non-200 response to produce an error")
	}
}
