// Package resolver turns user supplied YouTube links into metadata, playlist
// ids, format listings and local media files.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/singleflight"

	"github.com/vicentereig/yt-resolver/internal/search"
	"github.com/vicentereig/yt-resolver/internal/types"
	"github.com/vicentereig/yt-resolver/internal/ytdlp"
)

var (
	ErrNoResults       = errors.New("no search results")
	ErrIndexOutOfRange = errors.New("result index out of range")
	ErrDownloadFailed  = errors.New("download failed")
)

var youtubeHost = regexp.MustCompile(`(?:youtube\.com|youtu\.be)`)

const sliderPageSize = 10

// Options configures a Resolver. Zero timeouts mean no limit beyond the
// caller's context.
type Options struct {
	DownloadsDir    string
	SearchTimeout   time.Duration
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	Log             waLog.Logger
}

type Resolver struct {
	search       search.Provider
	ytdlp        *ytdlp.Client
	downloadsDir string

	searchTimeout   time.Duration
	probeTimeout    time.Duration
	downloadTimeout time.Duration

	group singleflight.Group
	locks pathLocks
	log   waLog.Logger
}

func New(provider search.Provider, client *ytdlp.Client, opts Options) *Resolver {
	if opts.DownloadsDir == "" {
		opts.DownloadsDir = "downloads"
	}
	if opts.Log == nil {
		opts.Log = waLog.Noop
	}
	return &Resolver{
		search:          provider,
		ytdlp:           client,
		downloadsDir:    opts.DownloadsDir,
		searchTimeout:   opts.SearchTimeout,
		probeTimeout:    opts.ProbeTimeout,
		downloadTimeout: opts.DownloadTimeout,
		locks:           pathLocks{locks: make(map[string]*pathLock)},
		log:             opts.Log,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Exists reports whether link (or the watch URL of an id) points at YouTube.
func (r *Resolver) Exists(ctx context.Context, link string, isID bool) bool {
	if isID {
		link = types.WatchBase + link
	}
	return youtubeHost.MatchString(link)
}

func (r *Resolver) lookup(ctx context.Context, link string, isID bool, limit int) ([]search.Result, error) {
	query := types.MediaReference{Link: link, IsID: isID}.Normalize(types.WatchBase)

	ctx, cancel := withTimeout(ctx, r.searchTimeout)
	defer cancel()

	results, err := r.search.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	return results, nil
}

func (r *Resolver) first(ctx context.Context, link string, isID bool) (search.Result, error) {
	results, err := r.lookup(ctx, link, isID, 1)
	if err != nil {
		return search.Result{}, err
	}
	return results[0], nil
}

// thumbnailOf returns the first thumbnail without its query string.
func thumbnailOf(res search.Result) string {
	if len(res.Thumbnails) == 0 {
		return ""
	}
	thumb, _, _ := strings.Cut(res.Thumbnails[0].URL, "?")
	return thumb
}

func (r *Resolver) Details(ctx context.Context, link string, isID bool) (types.Metadata, error) {
	res, err := r.first(ctx, link, isID)
	if err != nil {
		return types.Metadata{}, err
	}
	return types.Metadata{
		Title:           res.Title,
		DurationDisplay: res.Duration,
		DurationSeconds: types.DurationToSeconds(res.Duration),
		Thumbnail:       thumbnailOf(res),
		VideoID:         res.ID,
	}, nil
}

func (r *Resolver) Title(ctx context.Context, link string, isID bool) (string, error) {
	res, err := r.first(ctx, link, isID)
	if err != nil {
		return "", err
	}
	return res.Title, nil
}

func (r *Resolver) Duration(ctx context.Context, link string, isID bool) (string, error) {
	res, err := r.first(ctx, link, isID)
	if err != nil {
		return "", err
	}
	return res.Duration, nil
}

func (r *Resolver) Thumbnail(ctx context.Context, link string, isID bool) (string, error) {
	res, err := r.first(ctx, link, isID)
	if err != nil {
		return "", err
	}
	return thumbnailOf(res), nil
}

// Track returns what a queue needs to enqueue the first result.
func (r *Resolver) Track(ctx context.Context, link string, isID bool) (types.Track, error) {
	res, err := r.first(ctx, link, isID)
	if err != nil {
		return types.Track{}, err
	}
	return types.Track{
		Title:           res.Title,
		Link:            res.Link,
		VideoID:         res.ID,
		DurationDisplay: res.Duration,
		Thumbnail:       thumbnailOf(res),
	}, nil
}

// Slider picks the index-th entry of a ten result search page.
func (r *Resolver) Slider(ctx context.Context, query string, index int, isID bool) (types.SliderResult, error) {
	results, err := r.lookup(ctx, query, isID, sliderPageSize)
	if err != nil {
		return types.SliderResult{}, err
	}
	if index < 0 || index >= len(results) {
		return types.SliderResult{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(results))
	}
	res := results[index]
	return types.SliderResult{
		Title:           res.Title,
		DurationDisplay: res.Duration,
		Thumbnail:       thumbnailOf(res),
		VideoID:         res.ID,
	}, nil
}

// Video returns the normalized watch URL for players that extract the
// stream themselves.
func (r *Resolver) Video(ctx context.Context, link string, isID bool) (string, error) {
	link = types.MediaReference{Link: link, IsID: isID}.Normalize(types.WatchBase)
	r.log.Infof("Returning YouTube URL for video streaming: %s", link)
	return link, nil
}

// Playlist lists up to limit video ids. Listing is best effort: failures
// yield an empty slice.
func (r *Resolver) Playlist(ctx context.Context, link string, limit int, userID int64, isID bool) ([]string, error) {
	link = types.MediaReference{Link: link, IsID: isID}.Normalize(types.PlaylistBase)

	pctx, cancel := withTimeout(ctx, r.probeTimeout)
	defer cancel()

	ids, err := r.ytdlp.FlatPlaylistIDs(pctx, link, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Warnf("playlist %s for user %d: %v", link, userID, err)
		return []string{}, nil
	}
	r.log.Debugf("playlist %s for user %d: %d ids", link, userID, len(ids))
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Formats lists the downloadable formats of a video, skipping dash
// manifests and entries missing any field. Null fields are kept as zero
// values.
func (r *Resolver) Formats(ctx context.Context, link string, isID bool) ([]types.FormatEntry, string, error) {
	link = types.MediaReference{Link: link, IsID: isID}.Normalize(types.WatchBase)

	ctx, cancel := withTimeout(ctx, r.probeTimeout)
	defer cancel()

	info, err := r.ytdlp.DumpJSON(ctx, link)
	if err != nil {
		return nil, link, fmt.Errorf("list formats of %s: %w", link, err)
	}

	entries := []types.FormatEntry{}
	for _, f := range info.Formats {
		if !f.Has("format", "filesize", "format_id", "ext", "format_note") {
			continue
		}
		label := value(f.Format)
		if strings.Contains(strings.ToLower(label), "dash") {
			continue
		}
		entries = append(entries, types.FormatEntry{
			Label:         label,
			FilesizeBytes: value(f.Filesize),
			FormatID:      value(f.FormatID),
			Extension:     value(f.Ext),
			Note:          value(f.FormatNote),
			SourceURL:     link,
		})
	}
	return entries, link, nil
}

// value dereferences p; a null field reads as the zero value.
func value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CheckFileSize sums the reported size of every format. ok is false when
// yt-dlp fails or its output cannot be read.
func (r *Resolver) CheckFileSize(ctx context.Context, link string) (int64, bool) {
	ctx, cancel := withTimeout(ctx, r.probeTimeout)
	defer cancel()

	info, err := r.ytdlp.DumpJSON(ctx, link)
	if err != nil {
		var perr *ytdlp.ProcessError
		if errors.As(err, &perr) {
			r.log.Errorf("yt-dlp error: %s", ytdlp.Truncate(perr.Stderr, 500))
		} else {
			r.log.Errorf("Error parsing file size: %v", err)
		}
		return 0, false
	}

	var total int64
	for _, f := range info.Formats {
		if f.Filesize != nil {
			total += *f.Filesize
		}
	}
	return total, true
}

type pathLock struct {
	sync.Mutex
	refs int
}

// pathLocks hands out one mutex per path and forgets it once nobody holds
// or waits for it.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	l, ok := p.locks[path]
	if !ok {
		l = &pathLock{}
		p.locks[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}
