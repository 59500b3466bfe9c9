package stages

import (
	"sort"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// tagVocabulary maps a free-text keyword to an inferred interest tag. A
// small, fixed vocabulary rather than an LLM call: stage 1 only needs a
// best-effort signal for the router (stage 2) and the ranker (stage 6).
var tagVocabulary = map[string]string{
	"hike":       "outdoors",
	"hiking":     "outdoors",
	"trail":      "outdoors",
	"museum":     "culture",
	"gallery":    "culture",
	"history":    "culture",
	"food":       "food",
	"restaurant": "food",
	"cuisine":    "food",
	"beach":      "relaxation",
	"spa":        "relaxation",
	"nightlife":  "nightlife",
	"bar":        "nightlife",
	"family":     "family",
	"kids":       "family",
	"budget":     "budget",
	"luxury":     "luxury",
	"adventure":  "adventure",
	"shopping":   "shopping",
}

// Intake is stage 1: it projects a Session (plus stage-0 attachment hints)
// into an EnrichedIntent by inferring tags from interests, title, and
// attachment hints against a fixed vocabulary.
func Intake(enh EnhancementOutput) domain.EnrichedIntent {
	session := enh.Session
	seen := make(map[string]bool)
	var tags []string

	addFrom := func(text string) {
		for _, tok := range tokens(text) {
			if tag, ok := tagVocabulary[tok]; ok && !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}

	for _, interest := range session.Interests {
		lower := strings.ToLower(interest)
		if !seen[lower] {
			seen[lower] = true
			tags = append(tags, lower)
		}
		addFrom(interest)
	}
	addFrom(session.Title)
	for _, hint := range enh.AttachmentHints {
		addFrom(hint)
	}
	sort.Strings(tags)

	return domain.EnrichedIntent{
		SessionID:    session.SessionID,
		Title:        session.Title,
		Destinations: session.Destinations,
		DateRange:    session.DateRange,
		Flexibility:  session.Flexibility,
		Interests:    session.Interests,
		Constraints:  session.Constraints,
		InferredTags: tags,
	}
}
