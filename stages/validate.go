package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// ValidateConfig controls which clusters stage 7 spends fact-check calls on.
type ValidateConfig struct {
	TopK    int
	Timeout time.Duration
}

// DefaultValidateConfig matches the top 10 lowest-trust candidates, 20s
// per-call timeout.
func DefaultValidateConfig() ValidateConfig {
	return ValidateConfig{TopK: 10, Timeout: 20 * time.Second}
}

// FactChecker performs a single fact-check call against a candidate and
// returns the resulting Validation. Implementations live in providers/chat.
type FactChecker func(ctx context.Context, c domain.Candidate) (domain.Validation, error)

// ValidateOutput is the stage-7 checkpoint payload.
type ValidateOutput struct {
	Clusters []domain.Cluster `json:"clusters"`
	Checked  int              `json:"checked"`
	Errors   []string         `json:"errors"`
}

// Validate fact-checks the lowest-trust candidates among the top-ranked
// clusters: origin in {youtube, web with at most one source}, capped at TopK,
// each call bounded by Timeout. A failed check sets the candidate's
// validation to unverified rather than failing the stage.
func Validate(ctx context.Context, clusters []domain.Cluster, cfg ValidateConfig, check FactChecker) ValidateOutput {
	out := append([]domain.Cluster{}, clusters...)
	candidates := lowTrustIndices(out, cfg.TopK)

	var errs []string
	checked := 0
	for _, idx := range candidates {
		rep := out[idx].Representative
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		validation, err := check(callCtx, rep)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", rep.CandidateID, err.Error()))
			out[idx].Representative.Validation = &domain.Validation{Status: domain.ValidationUnverified}
			continue
		}
		out[idx].Representative.Validation = &validation
		checked++
	}

	return ValidateOutput{Clusters: out, Checked: checked, Errors: errs}
}

// lowTrustIndices returns, in cluster order, the indices of the first TopK
// clusters whose representative origin is youtube, or web with at most one
// source.
func lowTrustIndices(clusters []domain.Cluster, topK int) []int {
	var candidates []int
	for i, c := range clusters {
		rep := c.Representative
		lowTrust := rep.Origin == domain.OriginYouTube ||
			(rep.Origin == domain.OriginWeb && len(rep.SourceRefs) <= 1)
		if lowTrust {
			candidates = append(candidates, i)
		}
	}
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}
