package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
)

type fakeSearcher struct {
	calls   int
	results map[string][]domain.Candidate
	errs    map[string]error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	f.calls++
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func lightPolicy() workerpool.RetryPolicy {
	return workerpool.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Jitter: 0}
}

func TestNewExecutor_AggregatesResultsAcrossQueries(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.Candidate{
		"museums in paris": {{Title: "Louvre", LocationText: "Paris"}},
		"parks in paris":   {{Title: "Luxembourg Gardens", LocationText: "Paris"}},
	}}
	exec := NewExecutor(searcher, lightPolicy())

	out, err := exec(context.Background(), domain.WorkerAssignment{
		WorkerID:   "web:paris",
		Queries:    []string{"museums in paris", "parks in paris"},
		MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.WorkerStatusOK {
		t.Fatalf("expected status ok, got %s", out.Status)
	}
	if len(out.Candidates) != 2 {
		t.Fatalf("expected 2 aggregated candidates, got %d", len(out.Candidates))
	}
}

func TestNewExecutor_PartialFailureReportsPartialStatus(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]domain.Candidate{"ok query": {{Title: "Found It", LocationText: "Rome"}}},
		errs:    map[string]error{"bad query": errors.New("permanent failure")},
	}
	exec := NewExecutor(searcher, lightPolicy())

	out, err := exec(context.Background(), domain.WorkerAssignment{
		WorkerID:   "web:rome",
		Queries:    []string{"ok query", "bad query"},
		MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.WorkerStatusPartial {
		t.Fatalf("expected status partial, got %s", out.Status)
	}
	if len(out.Candidates) != 1 {
		t.Fatalf("expected 1 candidate to survive, got %d", len(out.Candidates))
	}
}

func TestNewExecutor_AllQueriesFailingReportsErrorStatus(t *testing.T) {
	searcher := &fakeSearcher{errs: map[string]error{"bad": errors.New("permanent failure")}}
	exec := NewExecutor(searcher, lightPolicy())

	out, err := exec(context.Background(), domain.WorkerAssignment{
		WorkerID:   "web:nowhere",
		Queries:    []string{"bad"},
		MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.WorkerStatusError {
		t.Fatalf("expected status error, got %s", out.Status)
	}
	if out.Error == "" {
		t.Fatalf("expected an error message to be set")
	}
}

func TestNewExecutor_RetriesTransientNetworkErrors(t *testing.T) {
	attempts := 0
	searcher := &countingSearcher{fn: func() ([]domain.Candidate, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("connection reset by peer")
		}
		return []domain.Candidate{{Title: "Eventually Found", LocationText: "Tokyo"}}, nil
	}}
	exec := NewExecutor(searcher, lightPolicy())

	out, err := exec(context.Background(), domain.WorkerAssignment{
		WorkerID:   "web:tokyo",
		Queries:    []string{"q"},
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != domain.WorkerStatusOK {
		t.Fatalf("expected eventual success, got status %s", out.Status)
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestNewExecutor_PropagatesDeadlineExceededWhenAssignmentContextExpires(t *testing.T) {
	searcher := &blockingSearcher{}
	exec := NewExecutor(searcher, lightPolicy())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := exec(ctx, domain.WorkerAssignment{
		WorkerID:   "web:slow",
		Queries:    []string{"q"},
		MaxResults: 5,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

// blockingSearcher blocks until its context is cancelled, simulating a
// provider call that outlives the assignment's deadline.
type blockingSearcher struct{}

func (blockingSearcher) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type countingSearcher struct {
	fn func() ([]domain.Candidate, error)
}

func (c *countingSearcher) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	return c.fn()
}

func TestDedupeByIdentifier_PrefersPlaceIDOverTitleLocation(t *testing.T) {
	in := []domain.Candidate{
		{Title: "Cafe X", LocationText: "Lyon", Metadata: domain.Metadata{"placeId": "p1"}},
		{Title: "Cafe X (Duplicate Listing)", LocationText: "Lyon", Metadata: domain.Metadata{"placeId": "p1"}},
		{Title: "Cafe X", LocationText: "Lyon"},
	}
	out := dedupeByIdentifier(in)
	if len(out) != 2 {
		t.Fatalf("expected placeId duplicates collapsed to 1 entry plus the non-placeId one, got %d", len(out))
	}
}

func TestAssignmentSeed_IsDeterministicPerWorkerID(t *testing.T) {
	a := assignmentSeed("web:paris")
	b := assignmentSeed("web:paris")
	c := assignmentSeed("web:rome")
	if a != b {
		t.Fatalf("expected the same worker id to always produce the same seed")
	}
	if a == c {
		t.Fatalf("expected different worker ids to produce different seeds")
	}
}
