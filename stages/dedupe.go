package stages

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// SimilarityThreshold is the minimum candidateSimilarity score for two
// exact-bucket groups to be merged during phase 2.
const SimilarityThreshold = 0.85

// DedupeStats summarizes one clustering pass.
type DedupeStats struct {
	OriginalCount     int `json:"originalCount"`
	ClusterCount      int `json:"clusterCount"`
	DedupedCount      int `json:"dedupedCount"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// DedupeOutput is the stage-5 checkpoint payload: one Cluster per surviving
// group, each carrying its representative plus up to 3 diverse alternates.
type DedupeOutput struct {
	Clusters []domain.Cluster `json:"clusters"`
	Stats    DedupeStats      `json:"stats"`
}

type bucket struct {
	key     string
	members []domain.Candidate
}

// Dedupe runs the two-phase cluster engine: exact bucketing by placeId or
// content hash, then a single-pass agglomerative similarity merge over the
// resulting groups in scan order.
func Dedupe(candidates []domain.Candidate) DedupeOutput {
	buckets := exactBucket(candidates)
	merged := similarityMerge(buckets)

	out := make([]domain.Cluster, 0, len(merged))
	duplicatesRemoved := 0
	for i, group := range merged {
		out = append(out, buildCluster(group, i))
		duplicatesRemoved += len(group) - 1
	}

	return DedupeOutput{
		Clusters: out,
		Stats: DedupeStats{
			OriginalCount:     len(candidates),
			ClusterCount:      len(out),
			DedupedCount:      len(out),
			DuplicatesRemoved: duplicatesRemoved,
		},
	}
}

// exactBucket groups candidates by metadata.placeId when present, else by a
// content hash of placeId(absent)+normalized title+city.
func exactBucket(candidates []domain.Candidate) []bucket {
	index := make(map[string]int)
	var buckets []bucket

	for _, c := range candidates {
		key := exactKey(c)
		if i, ok := index[key]; ok {
			buckets[i].members = append(buckets[i].members, c)
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, bucket{key: key, members: []domain.Candidate{c}})
	}
	return buckets
}

func exactKey(c domain.Candidate) string {
	if placeID, ok := c.Metadata["placeId"]; ok {
		if s, ok := placeID.(string); ok && s != "" {
			return "place:" + s
		}
	}
	h := sha256.Sum256([]byte(normalizeText(c.Title) + "|" + cityOf(c.LocationText)))
	return "hash:" + hex.EncodeToString(h[:])[:16]
}

// similarityMerge performs the single-pass agglomerative phase 2 merge:
// groups are scanned in order, each unmerged later group is absorbed into
// the current group's representative if their similarity clears the
// threshold. The merge relation is not recomputed after absorption.
func similarityMerge(buckets []bucket) [][]domain.Candidate {
	absorbed := make([]bool, len(buckets))
	var groups [][]domain.Candidate

	for i := range buckets {
		if absorbed[i] {
			continue
		}
		group := append([]domain.Candidate{}, buckets[i].members...)
		repA := representativeOf(buckets[i].members)
		absorbed[i] = true

		for j := i + 1; j < len(buckets); j++ {
			if absorbed[j] {
				continue
			}
			repB := representativeOf(buckets[j].members)
			if candidateSimilarity(repA, repB) >= SimilarityThreshold {
				group = append(group, buckets[j].members...)
				absorbed[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func representativeOf(members []domain.Candidate) domain.Candidate {
	best := members[0]
	for _, m := range members[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best
}

// candidateSimilarity combines title Jaccard and location similarity.
func candidateSimilarity(a, b domain.Candidate) float64 {
	return 0.6*jaccard(tokens(a.Title), tokens(b.Title)) + 0.4*locationSim(a, b)
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

func toSet(ts []string) map[string]bool {
	m := make(map[string]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

func locationSim(a, b domain.Candidate) float64 {
	if a.Coordinates != nil && b.Coordinates != nil {
		meters := haversineMeters(*a.Coordinates, *b.Coordinates)
		switch {
		case meters < 50:
			return 1.0
		case meters < 200:
			return 0.8
		case meters < 500:
			return 0.5
		default:
			return 0.0
		}
	}
	return jaccard(tokens(a.LocationText), tokens(b.LocationText))
}

const earthRadiusMeters = 6371000.0

func haversineMeters(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// buildCluster constructs the Cluster record for one merged group: the
// representative (highest score, merged sourceRefs/tags across the whole
// group, freshly assigned clusterId), and up to 3 alternates chosen
// diverse-origin-first then topped up by score.
func buildCluster(group []domain.Candidate, index int) domain.Cluster {
	rep := representativeOf(group)
	clusterID := fmt.Sprintf("cluster_%04d", index)

	rep.ClusterID = clusterID
	rep.SourceRefs = mergeSourceRefs(group, rep)
	rep.Tags = mergeTags(group)

	return domain.Cluster{
		ClusterID:      clusterID,
		Representative: rep,
		Alternates:     selectAlternates(group, rep),
		MemberCount:    len(group),
	}
}

// selectAlternates picks up to 3 remaining members: first pass greedily adds
// the highest-scoring member of each origin not yet represented among
// {rep ∪ alternates}; if fewer than 3 remain after that pass, tops up by
// score from whatever members are left.
func selectAlternates(group []domain.Candidate, rep domain.Candidate) []domain.Candidate {
	remaining := make([]domain.Candidate, 0, len(group)-1)
	for _, c := range group {
		if c.CandidateID == rep.CandidateID {
			continue
		}
		remaining = append(remaining, c)
	}
	if len(remaining) == 0 {
		return nil
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Score > remaining[j].Score })

	const maxAlternates = 3
	seenOrigin := map[domain.Origin]bool{rep.Origin: true}
	var alternates []domain.Candidate
	var leftover []domain.Candidate

	for _, c := range remaining {
		if len(alternates) >= maxAlternates {
			leftover = append(leftover, c)
			continue
		}
		if !seenOrigin[c.Origin] {
			seenOrigin[c.Origin] = true
			alternates = append(alternates, c)
			continue
		}
		leftover = append(leftover, c)
	}

	for _, c := range leftover {
		if len(alternates) >= maxAlternates {
			break
		}
		alternates = append(alternates, c)
	}
	return alternates
}

func mergeSourceRefs(group []domain.Candidate, rep domain.Candidate) []domain.SourceRef {
	seen := make(map[string]bool)
	var out []domain.SourceRef

	appendRefs := func(refs []domain.SourceRef) {
		for _, r := range refs {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}

	appendRefs(rep.SourceRefs)
	for _, c := range group {
		if c.CandidateID == rep.CandidateID {
			continue
		}
		appendRefs(c.SourceRefs)
	}
	return out
}

func mergeTags(group []domain.Candidate) []string {
	seen := make(map[string]string) // lowercase -> canonical lowercase form
	for _, c := range group {
		for _, t := range c.Tags {
			lower := strings.ToLower(t)
			seen[lower] = lower
		}
	}
	out := make([]string, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
