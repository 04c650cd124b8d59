package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vicentereig/yt-resolver/internal/types"
)

// DataAPIClient searches through the YouTube Data API v3.
type DataAPIClient struct {
	apiKey    string
	searchURL string
	http      *http.Client
	log       waLog.Logger
}

func NewDataAPIClient(apiKey, searchURL string, log waLog.Logger) *DataAPIClient {
	if log == nil {
		log = waLog.Noop
	}
	return &DataAPIClient{
		apiKey:    apiKey,
		searchURL: searchURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytSnippet struct {
	Title      string `json:"title"`
	Thumbnails struct {
		Default struct {
			URL string `json:"url"`
		} `json:"default"`
		Medium struct {
			URL string `json:"url"`
		} `json:"medium"`
		High struct {
			URL string `json:"url"`
		} `json:"high"`
	} `json:"thumbnails"`
}

func (s ytSnippet) bestThumbnail() string {
	thumb := s.Thumbnails.High.URL
	if thumb == "" {
		thumb = s.Thumbnails.Medium.URL
	}
	if thumb == "" {
		thumb = s.Thumbnails.Default.URL
	}
	return thumb
}

type ytVideosResponse struct {
	Items []struct {
		ID             string    `json:"id"`
		Snippet        ytSnippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *DataAPIClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	// A single-result lookup of a video link goes straight to the videos
	// endpoint; a text search would not guarantee the same video first.
	if limit == 1 {
		if id, ok := videoID(query); ok {
			return c.lookupVideos(ctx, []string{id})
		}
	}

	val := url.Values{}
	val.Set("part", "snippet")
	val.Set("type", "video")
	val.Set("maxResults", strconv.Itoa(limit))
	val.Set("q", query)
	val.Set("key", c.apiKey)

	var body ytSearchResponse
	if err := c.getJSON(ctx, c.searchURL+"?"+val.Encode(), &body); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(body.Items))
	ids := make([]string, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, Result{
			Title:      it.Snippet.Title,
			ID:         it.ID.VideoID,
			Thumbnails: []Thumbnail{{URL: it.Snippet.bestThumbnail()}},
			Link:       types.WatchBase + it.ID.VideoID,
		})
		ids = append(ids, it.ID.VideoID)
	}

	if len(ids) > 0 {
		durations, err := c.fetchDurations(ctx, ids)
		if err != nil {
			c.log.Warnf("youtube fetch durations error: %v", err)
		} else {
			for i := range out {
				out[i].Duration = durations[out[i].ID]
			}
		}
	}
	return out, nil
}

func (c *DataAPIClient) lookupVideos(ctx context.Context, ids []string) ([]Result, error) {
	var body ytVideosResponse
	if err := c.getJSON(ctx, c.videosURL("snippet,contentDetails", ids), &body); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, Result{
			Title:      it.Snippet.Title,
			Duration:   types.SecondsToDuration(parseISO8601Duration(it.ContentDetails.Duration)),
			ID:         it.ID,
			Thumbnails: []Thumbnail{{URL: it.Snippet.bestThumbnail()}},
			Link:       types.WatchBase + it.ID,
		})
	}
	return out, nil
}

func (c *DataAPIClient) fetchDurations(ctx context.Context, ids []string) (map[string]string, error) {
	var body ytVideosResponse
	if err := c.getJSON(ctx, c.videosURL("contentDetails", ids), &body); err != nil {
		return nil, err
	}
	durations := make(map[string]string, len(body.Items))
	for _, item := range body.Items {
		durations[item.ID] = types.SecondsToDuration(parseISO8601Duration(item.ContentDetails.Duration))
	}
	return durations, nil
}

// videosURL derives the videos endpoint from the configured search URL.
func (c *DataAPIClient) videosURL(part string, ids []string) string {
	val := url.Values{}
	val.Set("part", part)
	val.Set("id", strings.Join(ids, ","))
	val.Set("key", c.apiKey)

	baseURL := "https://www.googleapis.com/youtube/v3/videos"
	if strings.HasSuffix(c.searchURL, "/search") {
		baseURL = strings.TrimSuffix(c.searchURL, "/search") + "/videos"
	}
	return baseURL + "?" + val.Encode()
}

func (c *DataAPIClient) getJSON(ctx context.Context, reqURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

var iso8601Duration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISO8601Duration returns seconds for PT#H#M#S durations, 0 otherwise.
func parseISO8601Duration(duration string) int {
	matches := iso8601Duration.FindStringSubmatch(duration)
	if len(matches) < 4 {
		return 0
	}
	var total int
	for i, mult := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(matches[i+1])
		total += n * mult
	}
	return total
}
