package domain

import "time"

// StageMetadata is the envelope header attached to every checkpoint file
// written to disk. It carries enough information to validate a checkpoint
// in isolation, without needing the run manifest.
type StageMetadata struct {
	StageID       string         `json:"stageId"`
	StageNumber   int            `json:"stageNumber"`
	StageName     string         `json:"stageName"`
	SchemaVersion int            `json:"schemaVersion"`
	SessionID     string         `json:"sessionId"`
	RunID         string         `json:"runId"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpstreamStage string         `json:"upstreamStage,omitempty"`
	Config        map[string]any `json:"config,omitempty"`
}

// Checkpoint is the on-disk envelope for a single stage's output: a header
// plus the stage-specific payload. T is whatever domain type that stage
// produces (EnrichedIntent, []WorkerOutput, []Candidate, []Cluster, ...).
type Checkpoint[T any] struct {
	Meta StageMetadata `json:"_meta"`
	Data T             `json:"data"`
}

// StageStatus summarizes one stage's recorded outcome in the run manifest.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusDegraded StageStatus = "degraded"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageEntry records one stage's status within a run manifest.
type StageEntry struct {
	StageID     string      `json:"stageId"`
	StageNumber int         `json:"stageNumber"`
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// RunManifest is the authoritative record of a single pipeline run: which
// stages have completed, in what order, and whether any ran in a degraded
// mode. pipeline.Execute writes it once, atomically, when the run ends (not
// at all for a dry run). Resume does not read it: a resumed run loads the
// source run's stage checkpoint directly.
type RunManifest struct {
	RunID          string       `json:"runId"`
	SessionID      string       `json:"sessionId"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Stages         []StageEntry `json:"stages"`
	DegradedStages []string     `json:"degradedStages,omitempty"`
}

// LatestComplete returns the stage number of the furthest stage recorded as
// complete, or -1 if no stage has completed yet.
func (m RunManifest) LatestComplete() int {
	latest := -1
	for _, s := range m.Stages {
		if s.Status == StageStatusComplete && s.StageNumber > latest {
			latest = s.StageNumber
		}
	}
	return latest
}

// IsDegraded reports whether stageID was recorded as degraded in this run.
func (m RunManifest) IsDegraded(stageID string) bool {
	for _, d := range m.DegradedStages {
		if d == stageID {
			return true
		}
	}
	return false
}
