package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/redis/go-redis/v9"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vicentereig/yt-resolver/internal/config"
	"github.com/vicentereig/yt-resolver/internal/cookies"
	"github.com/vicentereig/yt-resolver/internal/output"
	"github.com/vicentereig/yt-resolver/internal/resolver"
	"github.com/vicentereig/yt-resolver/internal/search"
	"github.com/vicentereig/yt-resolver/internal/types"
	"github.com/vicentereig/yt-resolver/internal/ytdlp"
)

var errSizeUnknown = errors.New("file size unknown")

type App struct {
	resolver MediaResolver
	closers  []io.Closer
	version  string
}

// NewApp wires the resolver described by cfg.
func NewApp(cfg config.Config, log waLog.Logger, version string) (*App, error) {
	if log == nil {
		log = waLog.Noop
	}
	app := &App{version: version}

	client := ytdlp.NewClient(cfg.YtDlpPath, ytdlp.ExecRunner{}, cookies.NewDirSource(cfg.CookiesDir), log.Sub("ytdlp"))
	provider, err := app.buildProvider(cfg, client, log)
	if err != nil {
		return nil, err
	}

	app.resolver = resolver.New(provider, client, resolver.Options{
		DownloadsDir:    cfg.DownloadsDir,
		SearchTimeout:   cfg.SearchTimeout,
		ProbeTimeout:    cfg.ProbeTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		Log:             log.Sub("resolver"),
	})
	return app, nil
}

// buildProvider answers single link lookups from the watch page and every
// other query through a yt-dlp search. A configured Data API key is tried
// first; redis caching wraps whichever chain is used.
func (a *App) buildProvider(cfg config.Config, client *ytdlp.Client, log waLog.Logger) (search.Provider, error) {
	var provider search.Provider = search.Fallback{
		Primary:   search.NewVideoClient(),
		Secondary: search.NewDownloaderSearch(client),
	}
	if cfg.YouTubeAPIKey != "" {
		provider = search.Fallback{
			Primary:   search.NewDataAPIClient(cfg.YouTubeAPIKey, cfg.YouTubeSearchURL, log.Sub("search")),
			Secondary: provider,
		}
	}
	if cfg.RedisURL == "" {
		return provider, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	a.closers = append(a.closers, rdb)
	return search.NewCachedProvider(provider, rdb, cfg.CacheTTL, log.Sub("cache")), nil
}

func NewAppWithDeps(r MediaResolver, version string) *App {
	return &App{resolver: r, version: version}
}

// Resolver returns the resolver the app was built with.
func (a *App) Resolver() MediaResolver {
	return a.resolver
}

func (a *App) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}

func (a *App) Exists(ctx context.Context, link string, isID bool) string {
	return output.Success(map[string]interface{}{
		"link":   link,
		"exists": a.resolver.Exists(ctx, link, isID),
	})
}

func (a *App) Details(ctx context.Context, link string, isID bool) string {
	md, err := a.resolver.Details(ctx, link, isID)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(md)
}

func (a *App) Slider(ctx context.Context, query string, index int, isID bool) string {
	res, err := a.resolver.Slider(ctx, query, index, isID)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(res)
}

func (a *App) Track(ctx context.Context, link string, isID bool) string {
	tr, err := a.resolver.Track(ctx, link, isID)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(tr)
}

func (a *App) Playlist(ctx context.Context, link string, limit int, userID int64, isID bool) string {
	ids, err := a.resolver.Playlist(ctx, link, limit, userID, isID)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(map[string]interface{}{
		"ids":   ids,
		"count": len(ids),
	})
}

func (a *App) Formats(ctx context.Context, link string, isID bool) string {
	entries, normalized, err := a.resolver.Formats(ctx, link, isID)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(map[string]interface{}{
		"formats": entries,
		"link":    normalized,
	})
}

// FormatsTable writes the formats as a table instead of JSON.
func (a *App) FormatsTable(ctx context.Context, w io.Writer, link string, isID bool) error {
	entries, _, err := a.resolver.Formats(ctx, link, isID)
	if err != nil {
		return err
	}
	output.FormatsTable(w, entries)
	return nil
}

func (a *App) Size(ctx context.Context, link string) string {
	size, ok := a.resolver.CheckFileSize(ctx, link)
	if !ok {
		return output.Error(errSizeUnknown)
	}
	return output.Success(map[string]interface{}{
		"link":  link,
		"bytes": size,
		"human": output.HumanSize(size),
	})
}

// Download runs one download strategy. formatID and title are only read by
// the song kinds.
func (a *App) Download(ctx context.Context, kind, link string, isID bool, formatID, title string) string {
	req, err := types.NewDownloadRequest(kind, types.MediaReference{Link: link, IsID: isID}, formatID, title)
	if err != nil {
		return output.Error(err)
	}

	res, err := a.resolver.Download(ctx, req)
	if err != nil {
		return output.Error(err)
	}
	return output.Success(res)
}

func (a *App) Version() string {
	return output.Success(map[string]interface{}{
		"version": resolveVersion(a.version, gitDescribe),
	})
}

// resolveVersion returns version unless it is the "dev" placeholder, in
// which case git describe is tried.
func resolveVersion(version string, describe func() (string, error)) string {
	if version != "" && version != "dev" {
		return version
	}
	if v, err := describe(); err == nil && v != "" {
		return v
	}
	return "dev"
}

func gitDescribe() (string, error) {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
