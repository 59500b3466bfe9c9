package workerpool

import "testing"

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Cooldown: 0})
	for i := 0; i < 2; i++ {
		b.RecordFailure("places")
	}
	if b.State("places") != StateClosed {
		t.Fatalf("expected breaker still closed before threshold, got %s", b.State("places"))
	}
	b.RecordFailure("places")
	if b.State("places") != StateOpen {
		t.Fatalf("expected breaker open at threshold, got %s", b.State("places"))
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, Cooldown: 0})
	b.RecordFailure("web")
	b.RecordFailure("web")
	b.RecordSuccess("web")
	b.RecordFailure("web")
	if b.State("web") != StateClosed {
		t.Fatalf("expected a success to reset the consecutive-failure count, got %s", b.State("web"))
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 0})
	b.RecordFailure("youtube") // opens immediately

	if b.IsOpen("youtube") {
		t.Fatalf("expected zero cooldown to immediately allow a half-open trial")
	}
	if b.State("youtube") != StateHalfOpen {
		t.Fatalf("expected half-open after cooldown elapses, got %s", b.State("youtube"))
	}

	b.RecordSuccess("youtube")
	if b.State("youtube") != StateHalfOpen {
		t.Fatalf("expected still half-open after 1 of 2 required successes, got %s", b.State("youtube"))
	}
	b.RecordSuccess("youtube")
	if b.State("youtube") != StateClosed {
		t.Fatalf("expected closed after success threshold met, got %s", b.State("youtube"))
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Cooldown: 0})
	b.RecordFailure("web")
	b.IsOpen("web") // transitions to half-open
	b.RecordFailure("web")
	if b.State("web") != StateOpen {
		t.Fatalf("expected a half-open failure to reopen the breaker, got %s", b.State("web"))
	}
}
