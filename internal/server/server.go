// Package server exposes the resolver over HTTP with the CLI's JSON envelope.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vicentereig/yt-resolver/internal/output"
	"github.com/vicentereig/yt-resolver/internal/resolver"
	"github.com/vicentereig/yt-resolver/internal/types"
)

// Resolver is the subset of resolver.Resolver the HTTP surface serves.
type Resolver interface {
	Exists(ctx context.Context, link string, isID bool) bool
	Details(ctx context.Context, link string, isID bool) (types.Metadata, error)
	Slider(ctx context.Context, query string, index int, isID bool) (types.SliderResult, error)
	Track(ctx context.Context, link string, isID bool) (types.Track, error)
	Playlist(ctx context.Context, link string, limit int, userID int64, isID bool) ([]string, error)
	Formats(ctx context.Context, link string, isID bool) ([]types.FormatEntry, string, error)
	CheckFileSize(ctx context.Context, link string) (int64, bool)
	Download(ctx context.Context, req types.DownloadRequest) (types.DownloadResult, error)
}

var (
	errMissingLink = errors.New("link is required")
	errSizeUnknown = errors.New("file size unknown")
)

const defaultPlaylistLimit = 25

type Server struct {
	resolver Resolver
	log      waLog.Logger
}

func New(r Resolver, log waLog.Logger) *Server {
	if log == nil {
		log = waLog.Noop
	}
	return &Server{resolver: r, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "yt-resolver"})
	})

	r.Route("/media", func(r chi.Router) {
		r.Get("/exists", s.handleExists)
		r.Get("/details", s.handleDetails)
		r.Get("/track", s.handleTrack)
		r.Get("/slider", s.handleSlider)
		r.Get("/playlist", s.handlePlaylist)
		r.Get("/formats", s.handleFormats)
		r.Get("/size", s.handleSize)
		r.Post("/download", s.handleDownload)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) respond(w http.ResponseWriter, data any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, output.Envelope(data, nil))
		return
	}
	status := statusFor(err)
	if status >= 500 {
		s.log.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, output.Envelope(nil, err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingLink), errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrNoResults), errors.Is(err, resolver.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, errSizeUnknown), errors.Is(err, resolver.ErrDownloadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// reference reads the link and id query parameters.
func reference(r *http.Request) (string, bool, error) {
	link := r.URL.Query().Get("link")
	if link == "" {
		return "", false, errMissingLink
	}
	isID, _ := strconv.ParseBool(r.URL.Query().Get("id"))
	return link, isID, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	s.respond(w, map[string]any{"link": link, "exists": s.resolver.Exists(r.Context(), link, isID)}, nil)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	md, err := s.resolver.Details(r.Context(), link, isID)
	s.respond(w, md, err)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	tr, err := s.resolver.Track(r.Context(), link, isID)
	s.respond(w, tr, err)
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	index, err := intParam(r, "index", 0)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	res, err := s.resolver.Slider(r.Context(), link, index, isID)
	s.respond(w, res, err)
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	limit, err := intParam(r, "limit", defaultPlaylistLimit)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	userID, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)

	ids, err := s.resolver.Playlist(r.Context(), link, limit, userID, isID)
	s.respond(w, map[string]any{"ids": ids, "count": len(ids)}, err)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	link, isID, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	entries, normalized, err := s.resolver.Formats(r.Context(), link, isID)
	s.respond(w, map[string]any{"formats": entries, "link": normalized}, err)
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	link, _, err := reference(r)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	size, ok := s.resolver.CheckFileSize(r.Context(), link)
	if !ok {
		s.respond(w, nil, errSizeUnknown)
		return
	}
	s.respond(w, map[string]any{"link": link, "bytes": size, "human": output.HumanSize(size)}, nil)
}

type downloadBody struct {
	Kind     string `json:"kind"`
	Link     string `json:"link"`
	IsID     bool   `json:"is_id"`
	FormatID string `json:"format_id"`
	Title    string `json:"title"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body downloadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, output.Envelope(nil, err))
		return
	}
	if body.Link == "" {
		s.respond(w, nil, errMissingLink)
		return
	}
	req, err := types.NewDownloadRequest(body.Kind, types.MediaReference{Link: body.Link, IsID: body.IsID}, body.FormatID, body.Title)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, output.Envelope(nil, err))
		return
	}

	res, err := s.resolver.Download(r.Context(), req)
	s.respond(w, res, err)
}
