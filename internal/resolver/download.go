package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vicentereig/yt-resolver/internal/types"
	"github.com/vicentereig/yt-resolver/internal/ytdlp"
)

const (
	audioFormat     = "bestaudio/best"
	videoFormat     = "bestvideo[height<=?720][width<=?1280][ext=mp4]+bestaudio[ext=m4a]/best[height<=?720][ext=mp4]/best"
	songVideoFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
)

var forbiddenNames = regexp.MustCompile(`[/\\<>:"|?*]`)

// sanitizeTitle makes a caller supplied title safe to use as a file name.
func sanitizeTitle(title string) string {
	title = forbiddenNames.ReplaceAllString(title, "_")
	return strings.TrimSpace(title)
}

// Download fetches the media selected by req into the downloads directory.
func (r *Resolver) Download(ctx context.Context, req types.DownloadRequest) (types.DownloadResult, error) {
	link := req.Reference.Normalize(types.WatchBase)

	var (
		path string
		err  error
	)
	switch req.Kind {
	case types.DownloadAudio:
		path, err = r.downloadByID(ctx, link, audioFormat, "", ytdlp.DownloadOptions{Format: audioFormat})
	case types.DownloadVideo:
		path, err = r.downloadByID(ctx, link, videoFormat, "mp4", ytdlp.DownloadOptions{Format: videoFormat, MergeFormat: "mp4"})
	case types.DownloadSongAudio:
		format := audioFormat
		if req.FormatID != "" && req.FormatID != "140" && req.FormatID != "best" {
			format = req.FormatID + "/" + audioFormat
		}
		path, err = r.downloadByTitle(ctx, link, req.Title, "mp3", ytdlp.DownloadOptions{
			Format:       format,
			ExtractAudio: true,
			AudioFormat:  "mp3",
			AudioQuality: "192K",
		})
	case types.DownloadSongVideo:
		format := songVideoFormat
		if req.FormatID != "" && req.FormatID != "best" {
			format = req.FormatID + "+bestaudio/best[ext=mp4]/best"
		}
		path, err = r.downloadByTitle(ctx, link, req.Title, "mp4", ytdlp.DownloadOptions{
			Format:      format,
			MergeFormat: "mp4",
		})
	default:
		return types.DownloadResult{}, fmt.Errorf("unsupported download kind: %q", req.Kind)
	}
	if err != nil {
		return types.DownloadResult{}, err
	}
	return types.DownloadResult{FilePath: path, IsDirect: true}, nil
}

// downloadByID stores the file as <id>.<ext> and reuses an existing copy.
// An empty ext keeps the extension of the probed format. Concurrent calls
// for the same file share one download.
func (r *Resolver) downloadByID(ctx context.Context, link, probeFormat, ext string, opts ytdlp.DownloadOptions) (string, error) {
	pctx, cancel := withTimeout(ctx, r.probeTimeout)
	info, err := r.ytdlp.DumpJSON(pctx, link, "-f", probeFormat)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: probe %s: %v", ErrDownloadFailed, link, err)
	}
	if info.ID == "" {
		return "", fmt.Errorf("%w: probe %s returned no id", ErrDownloadFailed, link)
	}
	if ext == "" {
		ext = info.Ext
	}
	target := filepath.Join(r.downloadsDir, info.ID+"."+ext)

	if fileExists(target) {
		r.log.Debugf("Reusing %s", target)
		return target, nil
	}

	ch := r.group.DoChan(target, func() (interface{}, error) {
		if fileExists(target) {
			return target, nil
		}
		opts.OutputTemplate = "%(id)s.%(ext)s"
		return r.stage(context.WithoutCancel(ctx), link, target, opts)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, ctx.Err())
	}
}

// downloadByTitle stores the file as <title>.<ext> and always downloads.
// Calls for the same title run one at a time.
func (r *Resolver) downloadByTitle(ctx context.Context, link, title, ext string, opts ytdlp.DownloadOptions) (string, error) {
	name := sanitizeTitle(title)
	if name == "" {
		return "", fmt.Errorf("%w: a title is required for song downloads", ErrDownloadFailed)
	}
	target := filepath.Join(r.downloadsDir, name+"."+ext)

	unlock := r.locks.lock(target)
	defer unlock()

	opts.OutputTemplate = name + ".%(ext)s"
	return r.stage(ctx, link, target, opts)
}

// stage downloads into a private directory under the downloads dir and
// renames the result onto target.
func (r *Resolver) stage(ctx context.Context, link, target string, opts ytdlp.DownloadOptions) (string, error) {
	staging := filepath.Join(r.downloadsDir, ".staging-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", fmt.Errorf("%w: create staging dir: %v", ErrDownloadFailed, err)
	}
	defer os.RemoveAll(staging)

	opts.OutputTemplate = filepath.Join(staging, opts.OutputTemplate)

	dctx, cancel := withTimeout(ctx, r.downloadTimeout)
	defer cancel()

	r.log.Infof("Downloading %s to %s", link, target)
	if err := r.ytdlp.Download(dctx, link, opts); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	produced, err := stagedFile(staging, filepath.Base(target))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if err := os.Rename(produced, target); err != nil {
		return "", fmt.Errorf("%w: move into place: %v", ErrDownloadFailed, err)
	}
	return target, nil
}

// stagedFile returns the expected file, or the only file yt-dlp left when
// it picked another extension.
func stagedFile(dir, want string) (string, error) {
	if path := filepath.Join(dir, want); fileExists(path) {
		return path, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", errors.New("yt-dlp finished without writing a file")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
