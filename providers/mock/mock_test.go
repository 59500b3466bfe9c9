package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

func TestSearcher_FnTakesPrecedenceOverFixed(t *testing.T) {
	s := &Searcher{
		Fn: func(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
			return []domain.Candidate{{Title: "from-fn"}}, nil
		},
		Fixed: []domain.Candidate{{Title: "from-fixed"}},
	}
	out, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Title != "from-fn" {
		t.Fatalf("expected Fn's result to win, got %+v", out)
	}
}

func TestSearcher_FixedTruncatesToMaxResults(t *testing.T) {
	s := &Searcher{Fixed: []domain.Candidate{{Title: "a"}, {Title: "b"}, {Title: "c"}}}
	out, err := s.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(out))
	}
}

func TestSearcher_ZeroMaxResultsReturnsAllFixed(t *testing.T) {
	s := &Searcher{Fixed: []domain.Candidate{{Title: "a"}, {Title: "b"}}}
	out, err := s.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected no truncation when maxResults<=0, got %d", len(out))
	}
}

func TestSearcher_ErrTakesPrecedenceOverFixedWhenNoFn(t *testing.T) {
	s := &Searcher{Err: errors.New("boom"), Fixed: []domain.Candidate{{Title: "a"}}}
	if _, err := s.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected the configured error to be returned")
	}
}

func TestChatModel_DefaultsToVerified(t *testing.T) {
	m := &ChatModel{}
	v, err := m.FactCheck(context.Background(), domain.Candidate{Title: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != domain.ValidationVerified {
		t.Fatalf("expected default status verified, got %s", v.Status)
	}
}

func TestChatModel_NarrateReferencesEveryClusterID(t *testing.T) {
	m := &ChatModel{}
	clusters := []domain.Cluster{
		{ClusterID: "c1", Representative: domain.Candidate{Title: "Louvre"}},
		{ClusterID: "c2", Representative: domain.Candidate{Title: "Eiffel Tower"}},
	}
	n, err := m.Narrate(context.Background(), clusters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(n.Highlights) != 2 {
		t.Fatalf("expected 1 highlight per cluster, got %d", len(n.Highlights))
	}
	if n.Highlights[0].ClusterID != "c1" || n.Highlights[1].ClusterID != "c2" {
		t.Fatalf("unexpected highlight cluster ids: %+v", n.Highlights)
	}
}

func TestChatModel_ModelNameDefaultsToMockChat(t *testing.T) {
	m := &ChatModel{}
	if m.Model() != "mock-chat" {
		t.Fatalf("expected default model name mock-chat, got %s", m.Model())
	}
	m2 := &ChatModel{ModelName: "custom"}
	if m2.Model() != "custom" {
		t.Fatalf("expected overridden model name, got %s", m2.Model())
	}
}
