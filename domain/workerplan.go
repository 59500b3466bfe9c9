package domain

import "time"

// WorkerAssignment is one worker's share of the stage-3 fan-out: which
// provider it targets, what queries to run, and the bounds it must respect.
type WorkerAssignment struct {
	WorkerID   string        `json:"workerId"`
	Provider   string        `json:"provider"`
	Queries    []string      `json:"queries"`
	MaxResults int           `json:"maxResults"`
	Timeout    time.Duration `json:"timeout"`
}

// WorkerPlan is the stage-2 (router/plan) output: the full set of worker
// assignments stage 3 will execute concurrently.
type WorkerPlan struct {
	SessionID   string             `json:"sessionId"`
	Assignments []WorkerAssignment `json:"assignments"`
}
