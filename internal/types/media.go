// Package types provides shared data structures used across packages.
// Both the resolver and its callers (commands, server, client) import types,
// so none of them needs to import another.
package types

import (
	"strconv"
	"strings"
)

const (
	// WatchBase expands a bare video id into a watch URL.
	WatchBase = "https://www.youtube.com/watch?v="
	// PlaylistBase expands a bare playlist id into a playlist URL.
	PlaylistBase = "https://youtube.com/playlist?list="
)

// MediaReference identifies a remote video: a full URL, or a bare id that
// must be expanded before use.
type MediaReference struct {
	Link string `json:"link"`
	IsID bool   `json:"is_id"`
}

// Normalize expands an id with base and strips tracking parameters
// (everything from the first '&').
func (r MediaReference) Normalize(base string) string {
	link := r.Link
	if r.IsID {
		link = base + link
	}
	if i := strings.Index(link, "&"); i >= 0 {
		link = link[:i]
	}
	return link
}

// Metadata is the first search result for a reference.
type Metadata struct {
	Title           string `json:"title"`
	DurationDisplay string `json:"duration_display"`
	DurationSeconds int    `json:"duration_seconds"`
	Thumbnail       string `json:"thumbnail"`
	VideoID         string `json:"video_id"`
}

// SliderResult is one entry of a ten-result search page.
type SliderResult struct {
	Title           string `json:"title"`
	DurationDisplay string `json:"duration_display"`
	Thumbnail       string `json:"thumbnail"`
	VideoID         string `json:"video_id"`
}

// Track is what a queueing layer needs to enqueue a video.
type Track struct {
	Title           string `json:"title"`
	Link            string `json:"link"`
	VideoID         string `json:"vidid"`
	DurationDisplay string `json:"duration_min"`
	Thumbnail       string `json:"thumb"`
}

// FormatEntry is one selectable quality of a video.
type FormatEntry struct {
	Label         string `json:"format"`
	FilesizeBytes int64  `json:"filesize"`
	FormatID      string `json:"format_id"`
	Extension     string `json:"ext"`
	Note          string `json:"format_note"`
	SourceURL     string `json:"yturl"`
}

// DurationToSeconds parses "SS", "MM:SS" or "H:MM:SS". Empty or malformed
// input yields 0.
func DurationToSeconds(display string) int {
	display = strings.TrimSpace(display)
	if display == "" || display == "None" {
		return 0
	}
	parts := strings.Split(display, ":")
	total := 0
	mult := 1
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0
		}
		total += n * mult
		mult *= 60
	}
	return total
}

// SecondsToDuration renders seconds the way search results display them:
// "M:SS" below an hour, "H:MM:SS" above. Zero renders as empty (live/unknown).
func SecondsToDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return strconv.Itoa(m) + ":" + pad2(s)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
