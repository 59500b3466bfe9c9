package stages

import (
	"sort"
	"strings"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// RankInput is the stage-6 input: the deduped clusters plus the trip intent
// used to score relevance. InferredTags carries stage 1's intent-extraction
// vocabulary (domain.EnrichedIntent.InferredTags), unioned with Interests
// when scoring the interest overlap.
type RankInput struct {
	Clusters     []domain.Cluster `json:"clusters"`
	Destination  string           `json:"destination"`
	Interests    []string         `json:"interests"`
	InferredTags []string         `json:"inferredTags"`
}

// RankOutput is the stage-6 checkpoint payload: clusters sorted by score
// descending, with the hard diversity cap applied to the top 20.
type RankOutput struct {
	Clusters []domain.Cluster `json:"clusters"`
}

const (
	topDiversityWindow = 20
	maxPerTypeInWindow = 4
	weightRelevance    = 0.35
	weightCredibility  = 0.30
	weightRecency      = 0.20
	weightDiversity    = 0.15
)

// typeKeywords holds the keyword vocabulary for the three candidate types the
// type bonus applies to. Other types (place, neighborhood, daytrip) carry no
// type bonus.
var typeKeywords = map[domain.CandidateType][]string{
	domain.CandidateTypeFood:       {"restaurant", "cafe", "food", "eat", "dining", "cuisine", "bar"},
	domain.CandidateTypeActivity:   {"tour", "hike", "class", "workshop", "adventure", "experience"},
	domain.CandidateTypeExperience: {"experience", "show", "performance", "festival"},
}

// Rank scores every cluster's representative via a two-pass weighted
// formula (relevance, credibility, recency, diversity) and applies a hard
// post-pass diversity cap over the top 20 by swapping excess same-type
// entries for the highest-scoring out-of-window deficit-type replacement.
func Rank(in RankInput, now time.Time) RankOutput {
	clusters := append([]domain.Cluster{}, in.Clusters...)

	for i := range clusters {
		clusters[i].Representative.Score = clusterScore(clusters[i], in, nil, now)
	}
	sortByScoreDesc(clusters)

	predecessors := make([]domain.CandidateType, 0, len(clusters))
	for i := range clusters {
		clusters[i].Representative.Score = clusterScore(clusters[i], in, predecessors, now)
		predecessors = append(predecessors, clusters[i].Representative.Type)
	}
	sortByScoreDesc(clusters)

	applyDiversityCap(clusters)
	return RankOutput{Clusters: clusters}
}

func sortByScoreDesc(clusters []domain.Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Representative.Score != clusters[j].Representative.Score {
			return clusters[i].Representative.Score > clusters[j].Representative.Score
		}
		return clusters[i].Representative.CandidateID < clusters[j].Representative.CandidateID
	})
}

func clusterScore(c domain.Cluster, in RankInput, predecessors []domain.CandidateType, now time.Time) float64 {
	rep := c.Representative
	relevance := relevanceScore(rep, in)
	credibility := credibilityScore(rep)
	recency := recencyScore(rep, now)
	diversity := diversityScore(rep.Type, predecessors)

	score := weightRelevance*relevance + weightCredibility*credibility + weightRecency*recency + weightDiversity*diversity
	return clamp(roundHalfUp(score), 0, 100)
}

func roundHalfUp(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return -float64(int64(-v + 0.5))
}

// relevanceScore combines a destination-match bonus, the candidate-tag /
// user-interest overlap, and a type bonus into the 0-100 relevance
// sub-score.
func relevanceScore(c domain.Candidate, in RankInput) float64 {
	destination := 0.0
	if in.Destination != "" {
		if strings.Contains(strings.ToLower(c.LocationText), strings.ToLower(in.Destination)) ||
			strings.Contains(strings.ToLower(c.Summary), strings.ToLower(in.Destination)) {
			destination = 30
		}
	}

	userInterests := lowercaseUnion(in.Interests, in.InferredTags)
	interest := interestOverlapScore(c.Tags, userInterests)

	typeBonus := 0.0
	if keywords, ok := typeKeywords[c.Type]; ok {
		matches := 0
		for _, want := range userInterests {
			for _, kw := range keywords {
				if strings.Contains(want, kw) || strings.Contains(kw, want) {
					matches++
					break
				}
			}
		}
		typeBonus = clamp(10*float64(matches), 0, 30)
	}

	return clamp(destination+interest+typeBonus, 0, 100)
}

// lowercaseUnion lowercases and deduplicates interests and inferredTags into
// a single set, returned as a slice for stable iteration.
func lowercaseUnion(interests, inferredTags []string) []string {
	seen := make(map[string]bool, len(interests)+len(inferredTags))
	out := make([]string, 0, len(interests)+len(inferredTags))
	for _, group := range [][]string{interests, inferredTags} {
		for _, v := range group {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// interestOverlapScore implements 40*|T∩I|/min(|T|,|I|), where T is the
// lowercased set of candidate tags and I is the lowercased set of user
// interests (interests ∪ inferredTags).
func interestOverlapScore(tags []string, interests []string) float64 {
	if len(tags) == 0 || len(interests) == 0 {
		return 0
	}
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tagSet[t] = true
		}
	}
	interestSet := make(map[string]bool, len(interests))
	for _, i := range interests {
		interestSet[i] = true
	}
	if len(tagSet) == 0 || len(interestSet) == 0 {
		return 0
	}

	intersection := 0
	for t := range tagSet {
		if interestSet[t] {
			intersection++
		}
	}
	denom := len(tagSet)
	if len(interestSet) < denom {
		denom = len(interestSet)
	}
	return clamp(40*float64(intersection)/float64(denom), 0, 40)
}

func credibilityScore(c domain.Candidate) float64 {
	base := 0.0
	switch c.Origin {
	case domain.OriginPlaces:
		base = 90
	case domain.OriginWeb:
		if len(c.SourceRefs) >= 2 {
			base = 80
		} else {
			base = 60
		}
	case domain.OriginYouTube:
		if c.Confidence == domain.ConfidenceVerified || c.Confidence == domain.ConfidenceHigh {
			base = 50
		} else {
			base = 30
		}
	}

	boost := 0.0
	if c.Validation != nil {
		switch c.Validation.Status {
		case domain.ValidationVerified:
			boost = 35
		case domain.ValidationPartiallyVerified:
			boost = 15
		}
	}
	return clamp(base+boost, 0, 100)
}

func recencyScore(c domain.Candidate, now time.Time) float64 {
	raw, ok := c.Metadata["publishedAt"]
	if !ok {
		return 50
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return 50
	}
	published, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 50
	}
	if now.IsZero() {
		now = time.Now()
	}
	if published.After(now) {
		return 100
	}
	age := now.Sub(published)
	switch {
	case age <= 30*24*time.Hour:
		return 100
	case age <= 90*24*time.Hour:
		return 80
	case age <= 180*24*time.Hour:
		return 60
	case age <= 365*24*time.Hour:
		return 40
	default:
		return 20
	}
}

func diversityScore(t domain.CandidateType, predecessors []domain.CandidateType) float64 {
	count := 0
	for _, p := range predecessors {
		if p == t {
			count++
		}
	}
	return clamp(100-10*float64(count), 0, 100)
}

// applyDiversityCap enforces at most maxPerTypeInWindow entries of any one
// type within the top topDiversityWindow clusters. Excess entries (lowest
// scoring of the over-represented type) are swapped with the
// highest-scoring out-of-window cluster of a deficit type.
func applyDiversityCap(clusters []domain.Cluster) {
	if len(clusters) <= topDiversityWindow {
		return
	}

	window := clusters[:topDiversityWindow]
	counts := make(map[domain.CandidateType]int)
	for _, c := range window {
		counts[c.Representative.Type]++
	}

	for {
		excessIdx, excessType, found := lowestScoringExcess(window, counts)
		if !found {
			return
		}
		replIdx, ok := highestScoringDeficit(clusters, counts)
		if !ok {
			return
		}

		clusters[excessIdx], clusters[replIdx] = clusters[replIdx], clusters[excessIdx]
		counts[excessType]--
		counts[clusters[excessIdx].Representative.Type]++
	}
}

func lowestScoringExcess(window []domain.Cluster, counts map[domain.CandidateType]int) (int, domain.CandidateType, bool) {
	idx := -1
	var lowestScore float64
	var t domain.CandidateType
	for i, c := range window {
		if counts[c.Representative.Type] <= maxPerTypeInWindow {
			continue
		}
		if idx == -1 || c.Representative.Score < lowestScore {
			idx = i
			lowestScore = c.Representative.Score
			t = c.Representative.Type
		}
	}
	return idx, t, idx != -1
}

func highestScoringDeficit(clusters []domain.Cluster, counts map[domain.CandidateType]int) (int, bool) {
	idx := -1
	var highestScore float64
	for i := topDiversityWindow; i < len(clusters); i++ {
		t := clusters[i].Representative.Type
		if counts[t] >= maxPerTypeInWindow {
			continue
		}
		if idx == -1 || clusters[i].Representative.Score > highestScore {
			idx = i
			highestScore = clusters[i].Representative.Score
		}
	}
	return idx, idx != -1
}
