// Package videosocial implements a providers.VideoSocialClient against the
// YouTube Data API v3.
package videosocial

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// Client implements providers.VideoSocialClient over the YouTube Data API.
type Client struct {
	service *youtube.Service
}

// New builds a Client authenticated with apiKey.
func New(ctx context.Context, apiKey string) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("videosocial: build youtube service: %w", err)
	}
	return &Client{service: svc}, nil
}

// Search queries YouTube for query and maps each result into a Candidate of
// type "experience", leaving Confidence for the normalizer to set. Results
// are deduped by video ID.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.Candidate, error) {
	if maxResults <= 0 {
		maxResults = 25
	}
	call := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(maxResults)).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("videosocial: search: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	byID := make(map[string]*youtube.SearchResult, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		if _, seen := byID[item.Id.VideoId]; seen {
			continue
		}
		byID[item.Id.VideoId] = item
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	stats, err := c.service.Videos.List([]string{"statistics"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("videosocial: video statistics: %w", err)
	}
	viewCounts := make(map[string]uint64, len(stats.Items))
	for _, v := range stats.Items {
		if v.Statistics != nil {
			viewCounts[v.Id] = v.Statistics.ViewCount
		}
	}

	candidates := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		item := byID[id]
		candidates = append(candidates, domain.Candidate{
			Type:    domain.CandidateTypeExperience,
			Title:   item.Snippet.Title,
			Summary: item.Snippet.Description,
			SourceRefs: []domain.SourceRef{{
				URL:         "https://www.youtube.com/watch?v=" + id,
				Publisher:   item.Snippet.ChannelTitle,
				RetrievedAt: item.Snippet.PublishedAt,
			}},
			Metadata: domain.Metadata{
				"viewCount":   float64(viewCounts[id]),
				"publishedAt": item.Snippet.PublishedAt,
			},
		})
	}
	return candidates, nil
}
