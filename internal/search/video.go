package search

import (
	"context"
	"fmt"

	"github.com/kkdai/youtube/v2"

	"github.com/vicentereig/yt-resolver/internal/types"
)

type videoGetter interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
}

// VideoClient resolves a single video link through the watch page, without
// an API key. It cannot run free-text searches or list more than one
// result.
type VideoClient struct {
	client videoGetter
}

func NewVideoClient() *VideoClient {
	return &VideoClient{client: &youtube.Client{}}
}

func (c *VideoClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit > 1 {
		return nil, fmt.Errorf("%w: %d results requested", ErrSearchUnsupported, limit)
	}
	id, ok := videoID(query)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSearchUnsupported, query)
	}

	video, err := c.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video %s: %w", id, err)
	}

	var thumbs []Thumbnail
	for _, th := range video.Thumbnails {
		thumbs = append(thumbs, Thumbnail{URL: th.URL})
	}
	// Highest resolution first, as search results list it.
	for i, j := 0, len(thumbs)-1; i < j; i, j = i+1, j-1 {
		thumbs[i], thumbs[j] = thumbs[j], thumbs[i]
	}

	return []Result{{
		Title:      video.Title,
		Duration:   types.SecondsToDuration(int(video.Duration.Seconds())),
		ID:         video.ID,
		Thumbnails: thumbs,
		Link:       types.WatchBase + video.ID,
	}}, nil
}
