package types

import "fmt"

// DownloadKind selects exactly one download strategy.
type DownloadKind string

const (
	DownloadAudio     DownloadKind = "audio"
	DownloadVideo     DownloadKind = "video"
	DownloadSongAudio DownloadKind = "song_audio"
	DownloadSongVideo DownloadKind = "song_video"
)

// ParseDownloadKind accepts the kind names used on the command line.
func ParseDownloadKind(s string) (DownloadKind, error) {
	switch DownloadKind(s) {
	case DownloadAudio, DownloadVideo, DownloadSongAudio, DownloadSongVideo:
		return DownloadKind(s), nil
	default:
		return "", fmt.Errorf("unsupported download kind: %s", s)
	}
}

// DownloadRequest is built through the constructors below so that a request
// carries one kind only. FormatID and Title are read by the song kinds.
type DownloadRequest struct {
	Kind      DownloadKind
	Reference MediaReference
	FormatID  string
	Title     string
}

func AudioDownload(ref MediaReference) DownloadRequest {
	return DownloadRequest{Kind: DownloadAudio, Reference: ref}
}

func VideoDownload(ref MediaReference) DownloadRequest {
	return DownloadRequest{Kind: DownloadVideo, Reference: ref}
}

func SongAudioDownload(ref MediaReference, formatID, title string) DownloadRequest {
	return DownloadRequest{Kind: DownloadSongAudio, Reference: ref, FormatID: formatID, Title: title}
}

func SongVideoDownload(ref MediaReference, formatID, title string) DownloadRequest {
	return DownloadRequest{Kind: DownloadSongVideo, Reference: ref, FormatID: formatID, Title: title}
}

// DownloadResult points at the downloaded file. IsDirect is always true:
// every strategy produces a local file.
type DownloadResult struct {
	FilePath string `json:"file_path"`
	IsDirect bool   `json:"is_direct"`
}

// NewDownloadRequest builds the request for a kind name, e.g. from a flag.
func NewDownloadRequest(kind string, ref MediaReference, formatID, title string) (DownloadRequest, error) {
	k, err := ParseDownloadKind(kind)
	if err != nil {
		return DownloadRequest{}, err
	}
	switch k {
	case DownloadAudio:
		return AudioDownload(ref), nil
	case DownloadVideo:
		return VideoDownload(ref), nil
	case DownloadSongAudio:
		return SongAudioDownload(ref, formatID, title), nil
	default:
		return SongVideoDownload(ref, formatID, title), nil
	}
}
