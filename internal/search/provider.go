// Package search looks up YouTube video metadata for the resolver.
package search

import (
	"context"
	"errors"
	"regexp"

	"github.com/kkdai/youtube/v2"
)

// ErrSearchUnsupported means a provider cannot serve the query and the next
// one should be asked.
var ErrSearchUnsupported = errors.New("query is not supported by this provider")

type Thumbnail struct {
	URL string `json:"url"`
}

// Result is one search hit. Duration is the display form ("4:13",
// "1:02:03"), empty for live streams.
type Result struct {
	Title      string      `json:"title"`
	Duration   string      `json:"duration"`
	ID         string      `json:"id"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Link       string      `json:"link"`
}

type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Fallback tries Primary and, when it cannot serve the query, Secondary.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f Fallback) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	res, err := f.Primary.Search(ctx, query, limit)
	if err == nil || f.Secondary == nil {
		return res, err
	}
	return f.Secondary.Search(ctx, query, limit)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// videoID returns the id of a video link or bare id. Free text is rejected
// even when it would pass as an id.
func videoID(query string) (string, bool) {
	id, err := youtube.ExtractVideoID(query)
	if err != nil || !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
