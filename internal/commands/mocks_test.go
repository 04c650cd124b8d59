package commands

import (
	"context"

	"github.com/vicentereig/yt-resolver/internal/types"
)

// MockResolver implements MediaResolver for testing.
type MockResolver struct {
	ExistsFunc        func(ctx context.Context, link string, isID bool) bool
	DetailsFunc       func(ctx context.Context, link string, isID bool) (types.Metadata, error)
	SliderFunc        func(ctx context.Context, query string, index int, isID bool) (types.SliderResult, error)
	TrackFunc         func(ctx context.Context, link string, isID bool) (types.Track, error)
	PlaylistFunc      func(ctx context.Context, link string, limit int, userID int64, isID bool) ([]string, error)
	FormatsFunc       func(ctx context.Context, link string, isID bool) ([]types.FormatEntry, string, error)
	CheckFileSizeFunc func(ctx context.Context, link string) (int64, bool)
	DownloadFunc      func(ctx context.Context, req types.DownloadRequest) (types.DownloadResult, error)
}

func (m *MockResolver) Exists(ctx context.Context, link string, isID bool) bool {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, link, isID)
	}
	return false
}

func (m *MockResolver) Details(ctx context.Context, link string, isID bool) (types.Metadata, error) {
	if m.DetailsFunc != nil {
		return m.DetailsFunc(ctx, link, isID)
	}
	return types.Metadata{}, nil
}

func (m *MockResolver) Slider(ctx context.Context, query string, index int, isID bool) (types.SliderResult, error) {
	if m.SliderFunc != nil {
		return m.SliderFunc(ctx, query, index, isID)
	}
	return types.SliderResult{}, nil
}

func (m *MockResolver) Track(ctx context.Context, link string, isID bool) (types.Track, error) {
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, link, isID)
	}
	return types.Track{}, nil
}

func (m *MockResolver) Playlist(ctx context.Context, link string, limit int, userID int64, isID bool) ([]string, error) {
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, link, limit, userID, isID)
	}
	return []string{}, nil
}

func (m *MockResolver) Formats(ctx context.Context, link string, isID bool) ([]types.FormatEntry, string, error) {
	if m.FormatsFunc != nil {
		return m.FormatsFunc(ctx, link, isID)
	}
	return nil, link, nil
}

func (m *MockResolver) CheckFileSize(ctx context.Context, link string) (int64, bool) {
	if m.CheckFileSizeFunc != nil {
		return m.CheckFileSizeFunc(ctx, link)
	}
	return 0, false
}

func (m *MockResolver) Download(ctx context.Context, req types.DownloadRequest) (types.DownloadResult, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, req)
	}
	return types.DownloadResult{}, nil
}
