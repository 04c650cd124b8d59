// Package commands provides the CLI command implementations.
//
// # Dependency Injection
//
// The interface below defines the dependency of App, enabling testability
// through mock injection. Types are shared via internal/types to avoid
// circular dependencies.
//
// Usage:
//   - Production: Use NewApp() which wires the resolver from configuration
//   - Testing: Use NewAppWithDeps() to inject mocks
package commands

import (
	"context"

	"github.com/vicentereig/yt-resolver/internal/types"
)

// MediaResolver defines the resolver operations the CLI exposes.
// The concrete implementation is resolver.Resolver.
type MediaResolver interface {
	Exists(ctx context.Context, link string, isID bool) bool
	Details(ctx context.Context, link string, isID bool) (types.Metadata, error)
	Slider(ctx context.Context, query string, index int, isID bool) (types.SliderResult, error)
	Track(ctx context.Context, link string, isID bool) (types.Track, error)
	Playlist(ctx context.Context, link string, limit int, userID int64, isID bool) ([]string, error)
	Formats(ctx context.Context, link string, isID bool) ([]types.FormatEntry, string, error)
	CheckFileSize(ctx context.Context, link string) (int64, bool)
	Download(ctx context.Context, req types.DownloadRequest) (types.DownloadResult, error)
}
