package stages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

func TestValidate_OnlySelectsLowTrustOrigins(t *testing.T) {
	clusters := []domain.Cluster{
		clusterOf("c1", domain.CandidateTypePlace, domain.OriginPlaces, "A", "a", "x"),
		clusterOf("c2", domain.CandidateTypePlace, domain.OriginYouTube, "B", "b", "x"),
		clusterOf("c3", domain.CandidateTypePlace, domain.OriginWeb, "C", "c", "x"),
	}
	clusters[2].Representative.SourceRefs = nil

	var checkedIDs []string
	check := func(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
		checkedIDs = append(checkedIDs, c.CandidateID)
		return domain.Validation{Status: domain.ValidationVerified}, nil
	}

	out := Validate(context.Background(), clusters, DefaultValidateConfig(), check)

	if out.Checked != 2 {
		t.Fatalf("expected 2 low-trust checks, got %d", out.Checked)
	}
	if len(checkedIDs) != 2 || checkedIDs[0] != "c2" || checkedIDs[1] != "c3" {
		t.Fatalf("expected youtube and single-source web checked, got %v", checkedIDs)
	}
	if out.Clusters[0].Representative.Validation != nil {
		t.Fatalf("expected places-backed cluster to remain unvalidated")
	}
}

func TestValidate_FailureMarksClusterUnverified(t *testing.T) {
	clusters := []domain.Cluster{
		clusterOf("c1", domain.CandidateTypePlace, domain.OriginYouTube, "B", "b", "x"),
	}
	check := func(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
		return domain.Validation{}, errors.New("provider unavailable")
	}

	out := Validate(context.Background(), clusters, ValidateConfig{TopK: 10, Timeout: time.Second}, check)

	if out.Checked != 0 {
		t.Fatalf("expected 0 successful checks, got %d", out.Checked)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(out.Errors))
	}
	validation := out.Clusters[0].Representative.Validation
	if validation == nil || validation.Status != domain.ValidationUnverified {
		t.Fatalf("expected cluster to be marked unverified after a failed check, got %v", validation)
	}
}

func TestValidate_CapsAtTopK(t *testing.T) {
	var clusters []domain.Cluster
	for i := 0; i < 15; i++ {
		clusters = append(clusters, clusterOf(rankClusterID(i, "yt"), domain.CandidateTypePlace, domain.OriginYouTube, "V", "v", "x"))
	}
	calls := 0
	check := func(ctx context.Context, c domain.Candidate) (domain.Validation, error) {
		calls++
		return domain.Validation{Status: domain.ValidationVerified}, nil
	}

	out := Validate(context.Background(), clusters, ValidateConfig{TopK: 10, Timeout: time.Second}, check)

	if calls != 10 {
		t.Fatalf("expected exactly 10 calls (TopK cap), got %d", calls)
	}
	if out.Checked != 10 {
		t.Fatalf("expected Checked=10, got %d", out.Checked)
	}
}
