package stages

import "github.com/wayfarerlabs/discovery-pipeline/domain"

// SelectConfig bounds the number of clusters carried into aggregation.
type SelectConfig struct {
	TopN int
}

// DefaultSelectConfig matches the default top-50 cut.
func DefaultSelectConfig() SelectConfig {
	return SelectConfig{TopN: 50}
}

// SelectOutput is the stage-8 checkpoint payload.
type SelectOutput struct {
	Clusters []domain.Cluster `json:"clusters"`
	Dropped  int              `json:"dropped"`
}

// Select truncates the ranked cluster list to the configured TopN, assuming
// the input is already sorted by score descending (stage 6's invariant).
func Select(clusters []domain.Cluster, cfg SelectConfig) SelectOutput {
	n := cfg.TopN
	if n <= 0 {
		n = DefaultSelectConfig().TopN
	}
	if n >= len(clusters) {
		return SelectOutput{Clusters: clusters, Dropped: 0}
	}
	return SelectOutput{Clusters: clusters[:n], Dropped: len(clusters) - n}
}
