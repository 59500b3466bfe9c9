package stages

import (
	"fmt"
	"strings"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// Render flattens the aggregated clusters into display-ready candidates and
// builds a deterministic markdown report. Output ordering follows the input
// cluster order (already rank-sorted by stage 6).
func Render(agg domain.AggregateOutput) domain.RenderOutput {
	rendered := make([]domain.RenderedCandidate, 0, len(agg.Clusters))
	for _, c := range agg.Clusters {
		rendered = append(rendered, domain.RenderedCandidate{
			ClusterID:      c.ClusterID,
			Title:          c.Representative.Title,
			Type:           c.Representative.Type,
			Summary:        c.Representative.Summary,
			LocationText:   c.Representative.LocationText,
			Score:          c.Representative.Score,
			Confidence:     c.Representative.Confidence,
			Tags:           c.Representative.Tags,
			SourceRefs:     c.Representative.SourceRefs,
			AlternateCount: len(c.Alternates),
		})
	}

	return domain.RenderOutput{
		Candidates: rendered,
		Narrative:  agg.Narrative,
		Markdown:   renderMarkdown(rendered, agg.Narrative),
	}
}

func renderMarkdown(candidates []domain.RenderedCandidate, narrative *domain.Narrative) string {
	var b strings.Builder
	b.WriteString("# Trip discoveries\n\n")

	if narrative != nil {
		b.WriteString(narrative.Summary)
		b.WriteString("\n\n")
		for _, h := range narrative.Highlights {
			fmt.Fprintf(&b, "- **%s**: %s\n", h.ClusterID, h.Note)
		}
		if len(narrative.Highlights) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("## Candidates\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. **%s** (%s, score %.0f)\n", i+1, c.Title, c.Type, c.Score)
		if c.LocationText != "" {
			fmt.Fprintf(&b, "   %s\n", c.LocationText)
		}
		if c.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", c.Summary)
		}
		for _, ref := range c.SourceRefs {
			fmt.Fprintf(&b, "   - [%s](%s)\n", refLabel(ref), ref.URL)
		}
	}

	if narrative != nil && len(narrative.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, r := range narrative.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	return b.String()
}

func refLabel(ref domain.SourceRef) string {
	if ref.Publisher != "" {
		return ref.Publisher
	}
	return ref.URL
}
