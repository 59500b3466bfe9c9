// Package stages implements the eleven numbered pipeline stages: per-origin
// normalization, two-phase dedupe/clustering, weighted multi-dimensional
// ranking, and the validate/select/aggregate/render contracts.
package stages

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// NormalizeStats summarizes one normalization pass.
type NormalizeStats struct {
	TotalCandidates int            `json:"totalCandidates"`
	ByWorker        map[string]int `json:"byWorker"`
	ByOrigin        map[string]int `json:"byOrigin"`
	Errors          []string       `json:"errors"`
}

// NormalizeOutput is the stage-4 checkpoint payload.
type NormalizeOutput struct {
	Candidates []domain.Candidate `json:"candidates"`
	Stats      NormalizeStats     `json:"stats"`
}

// Normalize maps a stage-3 WorkerOutput list into a uniform Candidate
// shape: it classifies each candidate's Origin from its producing worker,
// assigns confidence and a seed score per the per-origin rules, generates
// stable content-addressed IDs, and drops candidates that fail minimal
// schema validation.
func Normalize(outputs []domain.WorkerOutput) NormalizeOutput {
	stats := NormalizeStats{ByWorker: map[string]int{}, ByOrigin: map[string]int{}}
	var out []domain.Candidate

	for _, wo := range outputs {
		switch wo.Status {
		case domain.WorkerStatusError, domain.WorkerStatusSkipped:
			if wo.Error != "" {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", wo.WorkerID, wo.Error))
			} else {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", wo.WorkerID, wo.Status))
			}
			continue
		}

		origin := classifyOrigin(wo.WorkerID)
		for _, c := range wo.Candidates {
			if strings.TrimSpace(c.Title) == "" {
				continue
			}
			normalized := applyOriginRules(c, origin)
			if normalized.CandidateID == "" {
				normalized.CandidateID = candidateID(normalized)
			}
			out = append(out, normalized)
			stats.ByWorker[wo.WorkerID]++
			stats.ByOrigin[string(normalized.Origin)]++
		}
	}

	out = ensureUniqueIDs(out)
	stats.TotalCandidates = len(out)
	return NormalizeOutput{Candidates: out, Stats: stats}
}

// classifyOrigin infers a Candidate's Origin from the naming convention
// stage 2 assigns worker IDs: "web:*"/"research:*" for the grounded-
// knowledge endpoint, "places:*" for the POI endpoint, "youtube:*"/
// "video:*" for the video-social endpoint.
func classifyOrigin(workerID string) domain.Origin {
	lower := strings.ToLower(workerID)
	if i := strings.Index(lower, ":"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.Contains(lower, "place"), strings.Contains(lower, "poi"):
		return domain.OriginPlaces
	case strings.Contains(lower, "youtube"), strings.Contains(lower, "video"), strings.Contains(lower, "social"):
		return domain.OriginYouTube
	case strings.Contains(lower, "web"), strings.Contains(lower, "research"), strings.Contains(lower, "knowledge"):
		return domain.OriginWeb
	default:
		return domain.OriginWeb
	}
}

func applyOriginRules(c domain.Candidate, origin domain.Origin) domain.Candidate {
	c.Origin = origin
	switch origin {
	case domain.OriginWeb:
		switch {
		case len(c.SourceRefs) >= 2:
			c.Confidence = domain.ConfidenceVerified
		case len(c.SourceRefs) == 1:
			c.Confidence = domain.ConfidenceProvisional
		default:
			c.Confidence = domain.ConfidenceNeedsVerification
		}
	case domain.OriginPlaces:
		c.Confidence = domain.ConfidenceVerified
		if rating, ok := numericMeta(c.Metadata, "rating"); ok {
			c.Score = clamp((rating/5.0)*100, 0, 100)
		}
	case domain.OriginYouTube:
		c.Confidence = domain.ConfidenceProvisional
		if views, ok := numericMeta(c.Metadata, "viewCount"); ok && views > 0 {
			c.Score = clamp(math.Log10(views+1)*12.5, 0, 100)
		}
		c.Tags = ensureTag(c.Tags, "youtube")
	}
	return c
}

func numericMeta(meta domain.Metadata, key string) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	v, ok := meta[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func ensureTag(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}
	return append(tags, tag)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// candidateID derives a stable content-addressed ID from origin, title, and
// location, before collision resolution.
func candidateID(c domain.Candidate) string {
	h := sha256.Sum256([]byte(normalizeText(c.Title) + "|" + normalizeText(c.LocationText) + "|" + string(c.Origin)))
	return string(c.Origin) + "-" + hex.EncodeToString(h[:])[:8]
}

// ensureUniqueIDs appends "-k" (k=1,2,...) to any candidateId collision, in
// insertion order, so the earliest candidate keeps the canonical ID.
func ensureUniqueIDs(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		count := seen[c.CandidateID]
		seen[c.CandidateID] = count + 1
		if count > 0 {
			candidates[i].CandidateID = fmt.Sprintf("%s-%d", c.CandidateID, count)
		}
	}
	return candidates
}
