// Package ytdlp drives the yt-dlp command line tool: metadata dumps,
// searches, flat playlist listing and downloads.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vicentereig/yt-resolver/internal/cookies"
)

var ErrNoOutput = errors.New("yt-dlp produced no output")

// Info mirrors the parts of `yt-dlp -J` output we read. Pointer fields tell
// a missing or null value apart from a zero one.
type Info struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Ext     string   `json:"ext"`
	Formats []Format `json:"formats"`
}

type Format struct {
	Format     *string `json:"format"`
	Filesize   *int64  `json:"filesize"`
	FormatID   *string `json:"format_id"`
	Ext        *string `json:"ext"`
	FormatNote *string `json:"format_note"`

	keys map[string]bool
}

// UnmarshalJSON also records which keys the object carried, null or not.
func (f *Format) UnmarshalJSON(data []byte) error {
	type plain Format
	if err := json.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.keys = make(map[string]bool, len(raw))
	for k := range raw {
		f.keys[k] = true
	}
	return nil
}

// Has reports whether every key was present, even with a null value.
func (f Format) Has(keys ...string) bool {
	for _, k := range keys {
		if !f.keys[k] {
			return false
		}
	}
	return true
}

type Client struct {
	bin     string
	runner  Runner
	cookies cookies.Source
	log     waLog.Logger
}

func NewClient(bin string, runner Runner, src cookies.Source, log waLog.Logger) *Client {
	if bin == "" {
		bin = "yt-dlp"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if src == nil {
		src = cookies.Static{}
	}
	if log == nil {
		log = waLog.Noop
	}
	return &Client{bin: bin, runner: runner, cookies: src, log: log}
}

// commonArgs are prepended to every invocation: quiet output, geo bypass,
// no certificate checks and a rotated cookie file when one is available.
func (c *Client) commonArgs() []string {
	args := []string{"--geo-bypass", "--no-check-certificate", "--quiet", "--no-warnings"}
	if path, ok := c.cookies.Next(); ok {
		args = append(args, "--cookies", path)
	}
	return args
}

// DumpJSON runs `yt-dlp -J` (metadata only). extra is inserted before the
// link, e.g. a format selector so that Info.Ext reflects the chosen format.
func (c *Client) DumpJSON(ctx context.Context, link string, extra ...string) (*Info, error) {
	raw, err := c.DumpRaw(ctx, link, extra...)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	return &info, nil
}

// DumpRaw is DumpJSON without decoding.
func (c *Client) DumpRaw(ctx context.Context, link string, extra ...string) ([]byte, error) {
	args := append(c.commonArgs(), "-J", "--no-playlist")
	args = append(args, extra...)
	args = append(args, link)

	res, err := c.runner.Run(ctx, c.bin, args)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(res.Stdout))) == 0 {
		return nil, ErrNoOutput
	}
	return res.Stdout, nil
}

// FlatPlaylistIDs lists up to limit video ids of a playlist without
// resolving each entry. Unavailable entries are skipped (-i).
func (c *Client) FlatPlaylistIDs(ctx context.Context, link string, limit int) ([]string, error) {
	args := append(c.commonArgs(), "-i", "--get-id", "--flat-playlist", "--skip-download")
	if limit > 0 {
		args = append(args, "--playlist-end", strconv.Itoa(limit))
	}
	args = append(args, link)

	res, err := c.runner.Run(ctx, c.bin, args)
	ids := splitLines(string(res.Stdout))
	if err != nil && len(ids) == 0 {
		return nil, err
	}
	if err != nil {
		c.log.Warnf("playlist listing for %s exited early, keeping %d ids: %v", link, len(ids), err)
	}
	return ids, nil
}

// SearchEntry is one hit of a flat ytsearch listing. Duration is null for
// live streams.
type SearchEntry struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Duration   *float64    `json:"duration"`
	Thumbnails []Thumbnail `json:"thumbnails"`
}

type Thumbnail struct {
	URL string `json:"url"`
}

// Search lists the first limit results of a YouTube search for query.
// Entries are not resolved individually.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchEntry, error) {
	if limit < 1 {
		limit = 1
	}
	args := append(c.commonArgs(), "--flat-playlist", "-J", fmt.Sprintf("ytsearch%d:%s", limit, query))

	res, err := c.runner.Run(ctx, c.bin, args)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(res.Stdout))) == 0 {
		return nil, ErrNoOutput
	}
	var page struct {
		Entries []SearchEntry `json:"entries"`
	}
	if err := json.Unmarshal(res.Stdout, &page); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp search output: %w", err)
	}
	return page.Entries, nil
}

// DownloadOptions maps onto yt-dlp download flags.
type DownloadOptions struct {
	Format         string
	OutputTemplate string
	MergeFormat    string
	ExtractAudio   bool
	AudioFormat    string
	AudioQuality   string
}

func (o DownloadOptions) args() []string {
	var args []string
	if o.Format != "" {
		args = append(args, "-f", o.Format)
	}
	if o.OutputTemplate != "" {
		args = append(args, "-o", o.OutputTemplate)
	}
	if o.MergeFormat != "" {
		args = append(args, "--merge-output-format", o.MergeFormat)
	}
	if o.ExtractAudio {
		args = append(args, "-x", "--prefer-ffmpeg")
		if o.AudioFormat != "" {
			args = append(args, "--audio-format", o.AudioFormat)
		}
		if o.AudioQuality != "" {
			args = append(args, "--audio-quality", o.AudioQuality)
		}
	}
	return args
}

// Download fetches link according to opts.
func (c *Client) Download(ctx context.Context, link string, opts DownloadOptions) error {
	args := append(c.commonArgs(), "--no-playlist", "--no-part")
	args = append(args, opts.args()...)
	args = append(args, link)

	if _, err := c.runner.Run(ctx, c.bin, args); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
