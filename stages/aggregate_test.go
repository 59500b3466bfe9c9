package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

func TestAggregate_SuccessOnFirstAttempt(t *testing.T) {
	clusters := []domain.Cluster{clusterOf("c1", domain.CandidateTypePlace, domain.OriginPlaces, "A", "a", "x")}
	generate := func(ctx context.Context, cs []domain.Cluster) (domain.Narrative, error) {
		return domain.Narrative{Summary: "a trip"}, nil
	}

	out := Aggregate(context.Background(), clusters, AggregateConfig{MaxAttempts: 1}, generate)

	if !out.Stats.NarrativeGenerated {
		t.Fatalf("expected narrative generated on first success")
	}
	if out.Narrative == nil || out.Narrative.Summary != "a trip" {
		t.Fatalf("expected narrative populated, got %+v", out.Narrative)
	}
	if len(out.Clusters) != 1 {
		t.Fatalf("expected clusters passed through, got %d", len(out.Clusters))
	}
}

func TestAggregate_ExhaustedAttemptsDegradesGracefully(t *testing.T) {
	clusters := []domain.Cluster{clusterOf("c1", domain.CandidateTypePlace, domain.OriginPlaces, "A", "a", "x")}
	generate := func(ctx context.Context, cs []domain.Cluster) (domain.Narrative, error) {
		return domain.Narrative{}, errors.New("llm unavailable")
	}

	out := Aggregate(context.Background(), clusters, AggregateConfig{MaxAttempts: 1}, generate)

	if out.Stats.NarrativeGenerated {
		t.Fatalf("expected NarrativeGenerated=false after exhausting attempts")
	}
	if out.Narrative != nil {
		t.Fatalf("expected nil narrative after exhausting attempts, got %+v", out.Narrative)
	}
	if len(out.Clusters) != 1 {
		t.Fatalf("expected candidates to pass through unchanged even when degraded, got %d", len(out.Clusters))
	}
}

func TestAggregate_ContextCancellationStopsRetriesEarly(t *testing.T) {
	clusters := []domain.Cluster{clusterOf("c1", domain.CandidateTypePlace, domain.OriginPlaces, "A", "a", "x")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	generate := func(ctx context.Context, cs []domain.Cluster) (domain.Narrative, error) {
		calls++
		return domain.Narrative{}, errors.New("llm unavailable")
	}

	out := Aggregate(ctx, clusters, AggregateConfig{MaxAttempts: 3}, generate)

	if out.Stats.NarrativeGenerated {
		t.Fatalf("expected degraded output after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected the first attempt to still run before cancellation is observed, got %d calls", calls)
	}
}
