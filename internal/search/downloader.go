package search

import (
	"context"
	"fmt"

	"github.com/vicentereig/yt-resolver/internal/types"
	"github.com/vicentereig/yt-resolver/internal/ytdlp"
)

type entrySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchEntry, error)
}

// DownloaderSearch searches YouTube through yt-dlp. It needs no API key and
// takes free text as well as links, which are searched as text.
type DownloaderSearch struct {
	client entrySearcher
}

func NewDownloaderSearch(client *ytdlp.Client) *DownloaderSearch {
	return &DownloaderSearch{client: client}
}

func (s *DownloaderSearch) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	entries, err := s.client.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search for %q: %w", query, err)
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		var duration string
		if e.Duration != nil {
			duration = types.SecondsToDuration(int(*e.Duration))
		}
		// yt-dlp lists thumbnails smallest first.
		thumbs := make([]Thumbnail, 0, len(e.Thumbnails))
		for i := len(e.Thumbnails) - 1; i >= 0; i-- {
			thumbs = append(thumbs, Thumbnail{URL: e.Thumbnails[i].URL})
		}
		results = append(results, Result{
			Title:      e.Title,
			Duration:   duration,
			ID:         e.ID,
			Thumbnails: thumbs,
			Link:       types.WatchBase + e.ID,
		})
	}
	return results, nil
}
