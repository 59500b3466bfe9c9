// Package domain holds the shared data types that flow through the
// discovery pipeline: sessions, enriched intents, candidates, clusters,
// worker outputs, and the checkpoint/manifest envelopes that wrap them
// on disk.
package domain

import "time"

// Session captures a user's travel intent. It is immutable after creation;
// a Run is always seeded from a snapshot of a Session, never a live
// reference to it.
type Session struct {
	SessionID    string       `json:"sessionId"`
	Title        string       `json:"title"`
	Destinations []string     `json:"destinations"`
	DateRange    DateRange    `json:"dateRange"`
	Flexibility  Flexibility  `json:"flexibility"`
	Interests    []string     `json:"interests"`
	Constraints  Constraints  `json:"constraints"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// DateRange is an inclusive start/end pair of travel dates.
type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// Flexibility describes how rigid the DateRange is.
type Flexibility struct {
	Type string `json:"type"` // "fixed" | "flexible" | "anytime"
	Days int    `json:"days,omitempty"`
}

// Constraints holds free-form trip constraints (budget, party size, mobility, ...).
type Constraints map[string]any

// Attachment is a user-supplied multimodal hint (photo, note, link) attached
// to a Session.
type Attachment struct {
	AttachmentID string `json:"attachmentId"`
	Kind         string `json:"kind"` // "image" | "note" | "link"
	Path         string `json:"path,omitempty"`
	URL          string `json:"url,omitempty"`
	Text         string `json:"text,omitempty"`
}

// EnrichedIntent is a Session projected through intent extraction (stages
// 0-2): the same trip facts plus tags inferred from free text, attachments,
// and interests. Consumed by the worker pool (stage 3) and the ranker
// (stage 6).
type EnrichedIntent struct {
	SessionID    string      `json:"sessionId"`
	Title        string      `json:"title"`
	Destinations []string    `json:"destinations"`
	DateRange    DateRange   `json:"dateRange"`
	Flexibility  Flexibility `json:"flexibility"`
	Interests    []string    `json:"interests"`
	Constraints  Constraints `json:"constraints"`
	InferredTags []string    `json:"inferredTags"`
}
