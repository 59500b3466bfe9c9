package stages

import (
	"testing"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

func candidate(id, title, location string, coords *domain.Coordinates, origin domain.Origin, score float64) domain.Candidate {
	return domain.Candidate{
		CandidateID:  id,
		Type:         domain.CandidateTypePlace,
		Title:        title,
		LocationText: location,
		Coordinates:  coords,
		Origin:       origin,
		Score:        score,
		Tags:         []string{},
		SourceRefs:   []domain.SourceRef{{URL: "https://example.com/" + id}},
	}
}

func TestDedupe_ExactPlaceIDMerge(t *testing.T) {
	a := candidate("web-1", "Blue Bottle Coffee", "San Francisco, CA", nil, domain.OriginWeb, 70)
	a.Metadata = domain.Metadata{"placeId": "ChIJabc123"}
	b := candidate("places-1", "Blue Bottle Coffee Co.", "SF, California", nil, domain.OriginPlaces, 90)
	b.Metadata = domain.Metadata{"placeId": "ChIJabc123"}

	out := Dedupe([]domain.Candidate{a, b})

	if len(out.Clusters) != 1 {
		t.Fatalf("expected 1 cluster from matching placeId, got %d", len(out.Clusters))
	}
	if out.Clusters[0].MemberCount != 2 {
		t.Fatalf("expected memberCount 2, got %d", out.Clusters[0].MemberCount)
	}
	if out.Clusters[0].Representative.CandidateID != "places-1" {
		t.Fatalf("expected higher-scoring places-1 as representative, got %s", out.Clusters[0].Representative.CandidateID)
	}
	if out.Stats.DuplicatesRemoved != 1 {
		t.Fatalf("expected 1 duplicate removed, got %d", out.Stats.DuplicatesRemoved)
	}
}

func TestDedupe_FuzzyTitleAndLocationMerge(t *testing.T) {
	near1 := &domain.Coordinates{Lat: 37.7749, Lng: -122.4194}
	near2 := &domain.Coordinates{Lat: 37.77495, Lng: -122.41945} // a few meters away

	a := candidate("web-1", "Golden Gate Park Walking Tour", "Golden Gate Park", near1, domain.OriginWeb, 60)
	b := candidate("youtube-1", "Golden Gate Park Walking Tour Guide", "Golden Gate Park", near2, domain.OriginYouTube, 40)

	out := Dedupe([]domain.Candidate{a, b})

	if len(out.Clusters) != 1 {
		t.Fatalf("expected fuzzy match to merge into 1 cluster, got %d", len(out.Clusters))
	}
	if out.Clusters[0].MemberCount != 2 {
		t.Fatalf("expected memberCount 2, got %d", out.Clusters[0].MemberCount)
	}
}

func TestDedupe_DistantSameNameStaysSeparate(t *testing.T) {
	sf := &domain.Coordinates{Lat: 37.7749, Lng: -122.4194}
	nyc := &domain.Coordinates{Lat: 40.7128, Lng: -74.0060}

	a := candidate("web-1", "Central Market", "San Francisco", sf, domain.OriginWeb, 55)
	b := candidate("web-2", "Central Market", "New York", nyc, domain.OriginWeb, 55)

	out := Dedupe([]domain.Candidate{a, b})

	if len(out.Clusters) != 2 {
		t.Fatalf("expected distant same-named candidates to stay separate, got %d clusters", len(out.Clusters))
	}
}

func TestDedupe_AlternatesPreferDiverseOrigins(t *testing.T) {
	rep := candidate("places-1", "City Museum", "Downtown", nil, domain.OriginPlaces, 90)
	alt1 := candidate("web-1", "City Museum Guide", "Downtown", nil, domain.OriginWeb, 80)
	alt2 := candidate("youtube-1", "City Museum Tour", "Downtown", nil, domain.OriginYouTube, 70)
	alt3 := candidate("places-2", "City Museum Annex", "Downtown", nil, domain.OriginPlaces, 60)

	group := []domain.Candidate{rep, alt1, alt2, alt3}
	alternates := selectAlternates(group, rep)

	if len(alternates) != 3 {
		t.Fatalf("expected 3 alternates, got %d", len(alternates))
	}
	seenOrigins := map[domain.Origin]bool{}
	for _, c := range alternates {
		seenOrigins[c.Origin] = true
	}
	if !seenOrigins[domain.OriginWeb] || !seenOrigins[domain.OriginYouTube] {
		t.Fatalf("expected diverse-origin alternates to include web and youtube, got %+v", alternates)
	}
}
