package domain

// RenderedCandidate is the flattened, display-ready shape of a Cluster: the
// representative plus its alternates, inlined for direct consumption by a
// UI or markdown template.
type RenderedCandidate struct {
	ClusterID      string        `json:"clusterId"`
	Title          string        `json:"title"`
	Type           CandidateType `json:"type"`
	Summary        string        `json:"summary"`
	LocationText   string        `json:"locationText,omitempty"`
	Score          float64       `json:"score"`
	Confidence     Confidence    `json:"confidence"`
	Tags           []string      `json:"tags"`
	SourceRefs     []SourceRef   `json:"sourceRefs"`
	AlternateCount int           `json:"alternateCount"`
}

// RenderOutput is the stage-10 checkpoint payload: the structured result set
// plus a deterministic markdown rendering of the same data.
type RenderOutput struct {
	Candidates []RenderedCandidate `json:"candidates"`
	Narrative  *Narrative          `json:"narrative"`
	Markdown   string              `json:"markdown"`
}
