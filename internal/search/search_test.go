package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vicentereig/yt-resolver/internal/ytdlp"
)

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"PT3M4S", 184},
		{"PT1H", 3600},
		{"PT1H30M", 5400},
		{"PT45S", 45},
		{"P1DT1H", 0},
		{"invalid", 0},
		{"", 0},
		{"PT1H1M1S", 3661},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseISO8601Duration(tt.input))
		})
	}
}

type RoundTripFunc func(req *http.Request) *http.Response

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestDataAPISearch(t *testing.T) {
	client := NewDataAPIClient("apikey", "https://mock.com/youtube/v3/search", nil)
	client.http = &http.Client{Transport: RoundTripFunc(func(req *http.Request) *http.Response {
		switch {
		case strings.HasSuffix(req.URL.Path, "/search"):
			assert.Equal(t, "lofi beats", req.URL.Query().Get("q"))
			assert.Equal(t, "10", req.URL.Query().Get("maxResults"))
			return jsonResponse(`{"items": [
				{"id": {"videoId": "vid1"}, "snippet": {"title": "Track 1", "thumbnails": {"high": {"url": "http://img/1?x=1"}}}},
				{"id": {"videoId": "vid2"}, "snippet": {"title": "Track 2", "thumbnails": {"default": {"url": "http://img/2"}}}}
			]}`)
		case strings.HasSuffix(req.URL.Path, "/videos"):
			assert.Equal(t, "vid1,vid2", req.URL.Query().Get("id"))
			return jsonResponse(`{"items": [
				{"id": "vid1", "contentDetails": {"duration": "PT3M"}},
				{"id": "vid2", "contentDetails": {"duration": "PT1H1M30S"}}
			]}`)
		}
		return &http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader(""))}
	})}

	items, err := client.Search(context.Background(), "lofi beats", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "vid1", items[0].ID)
	assert.Equal(t, "3:00", items[0].Duration)
	assert.Equal(t, "http://img/1?x=1", items[0].Thumbnails[0].URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid1", items[0].Link)
	assert.Equal(t, "1:01:30", items[1].Duration)
	assert.Equal(t, "http://img/2", items[1].Thumbnails[0].URL)
}

func TestDataAPISingleLinkLookupUsesVideosEndpoint(t *testing.T) {
	var paths []string
	client := NewDataAPIClient("apikey", "https://mock.com/youtube/v3/search", nil)
	client.http = &http.Client{Transport: RoundTripFunc(func(req *http.Request) *http.Response {
		paths = append(paths, req.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", req.URL.Query().Get("id"))
		assert.Equal(t, "snippet,contentDetails", req.URL.Query().Get("part"))
		return jsonResponse(`{"items": [
			{"id": "dQw4w9WgXcQ", "snippet": {"title": "Never", "thumbnails": {"medium": {"url": "http://img/m"}}}, "contentDetails": {"duration": "PT3M33S"}}
		]}`)
	})}

	items, err := client.Search(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"/youtube/v3/videos"}, paths)
	assert.Equal(t, "Never", items[0].Title)
	assert.Equal(t, "3:33", items[0].Duration)
}

func TestDataAPISearchStatusError(t *testing.T) {
	client := NewDataAPIClient("apikey", "https://mock.com/search", nil)
	client.http = &http.Client{Transport: RoundTripFunc(func(req *http.Request) *http.Response {
		return &http.Response{StatusCode: 403, Body: io.NopCloser(strings.NewReader("quota"))}
	})}

	_, err := client.Search(context.Background(), "anything goes here", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

type fakeGetter struct {
	video *youtube.Video
	err   error
	asked string
}

func (f *fakeGetter) GetVideoContext(ctx context.Context, url string) (*youtube.Video, error) {
	f.asked = url
	return f.video, f.err
}

func TestVideoClientResolvesLink(t *testing.T) {
	getter := &fakeGetter{video: &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Duration: 213 * time.Second,
		Thumbnails: youtube.Thumbnails{
			{URL: "http://img/small"},
			{URL: "http://img/large"},
		},
	}}
	c := &VideoClient{client: getter}

	items, err := c.Search(context.Background(), "https://youtu.be/dQw4w9WgXcQ", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dQw4w9WgXcQ", getter.asked)
	assert.Equal(t, "3:33", items[0].Duration)
	assert.Equal(t, "http://img/large", items[0].Thumbnails[0].URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", items[0].Link)
}

func TestVideoClientRejectsFreeText(t *testing.T) {
	c := &VideoClient{client: &fakeGetter{}}

	_, err := c.Search(context.Background(), "some song name", 1)
	assert.ErrorIs(t, err, ErrSearchUnsupported)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Result), args.Error(1)
}

func TestFallback(t *testing.T) {
	primary := new(MockProvider)
	secondary := new(MockProvider)
	want := []Result{{ID: "x"}}

	primary.On("Search", mock.Anything, "q", 1).Return(nil, ErrSearchUnsupported)
	secondary.On("Search", mock.Anything, "q", 1).Return(want, nil)

	got, err := Fallback{Primary: primary, Secondary: secondary}.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestCachedProviderHitAndMiss(t *testing.T) {
	mr, rdb := setupRedis(t)
	inner := new(MockProvider)
	want := []Result{{Title: "Song", ID: "abc", Duration: "4:13", Thumbnails: []Thumbnail{{URL: "http://img"}}}}
	inner.On("Search", mock.Anything, "song", 1).Return(want, nil).Once()

	cached := NewCachedProvider(inner, rdb, time.Minute, nil)

	first, err := cached.Search(context.Background(), "song", 1)
	require.NoError(t, err)
	second, err := cached.Search(context.Background(), "song", 1)
	require.NoError(t, err)

	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	inner.AssertNumberOfCalls(t, "Search", 1)
	assert.True(t, mr.Exists(cacheKey("song", 1)))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey("song", 1)))
}

func TestCachedProviderSkipsEmptyAndErrors(t *testing.T) {
	mr, rdb := setupRedis(t)
	inner := new(MockProvider)
	inner.On("Search", mock.Anything, "nothing", 1).Return([]Result{}, nil)
	inner.On("Search", mock.Anything, "broken", 1).Return(nil, errors.New("provider down"))

	cached := NewCachedProvider(inner, rdb, time.Minute, nil)

	res, err := cached.Search(context.Background(), "nothing", 1)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.False(t, mr.Exists(cacheKey("nothing", 1)))

	_, err = cached.Search(context.Background(), "broken", 1)
	assert.EqualError(t, err, "provider down")
}

func TestCachedProviderSurvivesRedisOutage(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	inner := new(MockProvider)
	want := []Result{{ID: "abc"}}
	inner.On("Search", mock.Anything, "song", 1).Return(want, nil)

	got, err := NewCachedProvider(inner, rdb, time.Minute, nil).Search(context.Background(), "song", 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		query string
		id    string
		ok    bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"some song name", "", false},
		{"lofi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			id, ok := videoID(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestVideoClientRejectsMultiResultLookups(t *testing.T) {
	getter := &fakeGetter{}
	c := &VideoClient{client: getter}

	_, err := c.Search(context.Background(), "https://youtu.be/dQw4w9WgXcQ", 10)
	assert.ErrorIs(t, err, ErrSearchUnsupported)
	assert.Empty(t, getter.asked)
}

type fakeSearcher struct {
	entries []ytdlp.SearchEntry
	err     error
	queries []string
	limits  []int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchEntry, error) {
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func entries(n int) []ytdlp.SearchEntry {
	out := make([]ytdlp.SearchEntry, n)
	for i := range out {
		d := float64(200 + i)
		out[i] = ytdlp.SearchEntry{
			ID:       fmt.Sprintf("vid%08d", i),
			Title:    fmt.Sprintf("Result %d", i),
			Duration: &d,
			Thumbnails: []ytdlp.Thumbnail{
				{URL: fmt.Sprintf("http://img/%d/small", i)},
				{URL: fmt.Sprintf("http://img/%d/large", i)},
			},
		}
	}
	return out
}

func TestDownloaderSearchReturnsFullPage(t *testing.T) {
	searcher := &fakeSearcher{entries: entries(12)}
	s := &DownloaderSearch{client: searcher}

	results, err := s.Search(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", 10)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("vid%08d", i), res.ID)
	}
	assert.Equal(t, "3:20", results[0].Duration)
	assert.Equal(t, "http://img/9/large", results[9].Thumbnails[0].URL)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid00000009", results[9].Link)
	assert.Equal(t, []int{10}, searcher.limits)
}

func TestDownloaderSearchFreeText(t *testing.T) {
	live := entries(1)
	live[0].Duration = nil
	live = append(live, ytdlp.SearchEntry{Title: "no id"})
	searcher := &fakeSearcher{entries: live}
	s := &DownloaderSearch{client: searcher}

	results, err := s.Search(context.Background(), "never gonna give you up", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Result 0", results[0].Title)
	assert.Empty(t, results[0].Duration)
	assert.Equal(t, []string{"never gonna give you up"}, searcher.queries)

	searcher.err = ytdlp.ErrNoOutput
	_, err = s.Search(context.Background(), "q", 1)
	assert.ErrorIs(t, err, ytdlp.ErrNoOutput)
}

func TestKeylessChainServesEveryQuery(t *testing.T) {
	getter := &fakeGetter{video: &youtube.Video{ID: "dQw4w9WgXcQ", Title: "Watch page", Duration: 213 * time.Second}}
	searcher := &fakeSearcher{entries: entries(10)}
	chain := Fallback{
		Primary:   &VideoClient{client: getter},
		Secondary: &DownloaderSearch{client: searcher},
	}
	ctx := context.Background()

	one, err := chain.Search(ctx, "https://youtu.be/dQw4w9WgXcQ", 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "Watch page", one[0].Title)
	assert.Empty(t, searcher.queries)

	page, err := chain.Search(ctx, "https://youtu.be/dQw4w9WgXcQ", 10)
	require.NoError(t, err)
	assert.Len(t, page, 10)

	text, err := chain.Search(ctx, "lofi beats", 1)
	require.NoError(t, err)
	require.Len(t, text, 1)
	assert.Equal(t, "Result 0", text[0].Title)
	assert.Equal(t, []string{"https://youtu.be/dQw4w9WgXcQ", "lofi beats"}, searcher.queries)
}
