package domain

// Highlight is a single narrative callout referencing a cluster.
type Highlight struct {
	ClusterID string `json:"clusterId"`
	Note      string `json:"note"`
}

// Section groups clusters under a narrative heading (e.g. "Neighborhoods",
// "Day trips").
type Section struct {
	Heading    string   `json:"heading"`
	ClusterIDs []string `json:"clusterIds"`
}

// Narrative is the stage-9 LLM-generated summary of the candidate set. Nil
// when narrative generation is skipped or fails (degraded output).
type Narrative struct {
	Summary         string      `json:"summary"`
	Highlights      []Highlight `json:"highlights"`
	Sections        []Section   `json:"sections"`
	Recommendations []string    `json:"recommendations"`
}

// AggregateStats reports whether narrative generation succeeded.
type AggregateStats struct {
	NarrativeGenerated bool `json:"narrativeGenerated"`
}

// AggregateOutput is the stage-9 checkpoint payload.
type AggregateOutput struct {
	Clusters  []Cluster      `json:"candidates"`
	Narrative *Narrative     `json:"narrative"`
	Stats     AggregateStats `json:"stats"`
}
