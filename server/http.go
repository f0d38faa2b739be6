package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/melodeck/melodeck/fault"
	"github.com/melodeck/melodeck/history"
	"github.com/melodeck/melodeck/log"
	"github.com/melodeck/melodeck/playlist"
	"github.com/melodeck/melodeck/resolver"
	"github.com/melodeck/melodeck/track"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	// search limits accepted by the HTTP API
	httpMinSearchLimit = 10
	httpMaxSearchLimit = 50

	maxBodySize = 1 << 20
)

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/related", s.handleRelated)
	mux.HandleFunc("POST /api/play", s.handlePlay)
	mux.HandleFunc("POST /api/pause", s.handleSimple(ActionPause))
	mux.HandleFunc("POST /api/resume", s.handleSimple(ActionResume))
	mux.HandleFunc("POST /api/stop", s.handleSimple(ActionStop))
	mux.HandleFunc("POST /api/volume", s.handleVolume)
	mux.HandleFunc("POST /api/seek", s.handleSeek)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("GET /api/playlists", handlePlaylists)
	mux.HandleFunc("POST /api/playlists", handleCreatePlaylist)
	mux.HandleFunc("GET /api/playlists/{id}", handlePlaylist)
	mux.HandleFunc("PATCH /api/playlists/{id}", handleEditPlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", handleDeletePlaylist)
	mux.HandleFunc("POST /api/playlists/{id}/tracks", handleAddTrack)
	mux.HandleFunc("DELETE /api/playlists/{id}/tracks/{track}", handleRemoveTrack)
	mux.HandleFunc("POST /api/playlists/{id}/tracks/{track}/move", handleMoveTrack)

	return logRequests(mux)
}

// ListenAndServe serves the HTTP API on addr until ctx is done.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("http: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		log.With(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(started).String(),
		}).Debug("http: request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("http: write response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, name string, value any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, name: value})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]any{"ok": false, "error": fault.Message(err)})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": message})
}

func statusOf(err error) int {
	switch fault.KindOf(err) {
	case fault.ValidationError:
		return http.StatusBadRequest
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Conflict, fault.NoActiveSession:
		return http.StatusConflict
	case fault.RateLimited:
		return http.StatusTooManyRequests
	case fault.MissingDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Player.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "result", status)
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "Missing query parameter 'q'")
		return
	}

	limit := queryInt(r, "limit")
	if limit == 0 {
		limit = 20
	}
	limit = lo.Clamp(limit, httpMinSearchLimit, httpMaxSearchLimit)

	results, err := s.Player.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "results", nonNil(results))
}

func (s *Service) handleRelated(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		badRequest(w, "Missing query parameter 'title'")
		return
	}

	results, err := s.Player.Related(r.Context(), title, r.URL.Query().Get("uploader"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "results", nonNil(results))
}

type playBody struct {
	URL   string `json:"url"`
	ID    string `json:"id"`
	Query string `json:"query"`
}

func (b playBody) target() string {
	switch {
	case strings.TrimSpace(b.URL) != "":
		return strings.TrimSpace(b.URL)
	case strings.TrimSpace(b.ID) != "":
		return resolver.WatchURL(b.ID)
	default:
		return strings.TrimSpace(b.Query)
	}
}

func (s *Service) handlePlay(w http.ResponseWriter, r *http.Request) {
	var body playBody
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	target := body.target()
	if target == "" {
		badRequest(w, "Provide url, id or query")
		return
	}

	result, err := s.Player.Play(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "result", result)
}

func (s *Service) handleSimple(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.Dispatch(r.Context(), action, Args{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, "result", result)
	}
}

func (s *Service) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Level any `json:"level"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if body.Level == nil {
		badRequest(w, "Missing 'level'")
		return
	}

	result, err := s.Dispatch(r.Context(), ActionVolume, Args{Level: body.Level})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "result", result)
}

func (s *Service) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position any `json:"position"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if body.Position == nil {
		badRequest(w, "Missing 'position'")
		return
	}

	result, err := s.Dispatch(r.Context(), ActionSeek, Args{Position: body.Position})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "result", result)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	entries, err := history.Get(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "history", nonNil(entries))
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		badRequest(w, "Missing 'message'")
		return
	}

	reply, err := s.Chat(r.Context(), body.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"message":     reply.Message,
		"suggestions": nonNil(reply.Suggestions),
	})
}

func handlePlaylists(w http.ResponseWriter, _ *http.Request) {
	summaries, err := playlist.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "playlists", nonNil(summaries))
}

func handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		badRequest(w, "Missing 'name'")
		return
	}

	p, err := playlist.Create(body.Name, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "playlist": p})
}

func handlePlaylist(w http.ResponseWriter, r *http.Request) {
	respondPlaylist(w)(playlist.Get(r.PathValue("id")))
}

func handleEditPlaylist(w http.ResponseWriter, r *http.Request) {
	var update playlist.Update
	if err := decode(r, &update); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	respondPlaylist(w)(playlist.Edit(r.PathValue("id"), update))
}

func handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	respondPlaylist(w)(playlist.Delete(r.PathValue("id")))
}

func handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var t track.Summary
	if err := decode(r, &t); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	respondPlaylist(w)(playlist.AddTrack(r.PathValue("id"), t))
}

func handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	respondPlaylist(w)(playlist.RemoveTrack(r.PathValue("id"), r.PathValue("track")))
}

func handleMoveTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if body.Index == nil {
		badRequest(w, "Missing 'index'")
		return
	}
	respondPlaylist(w)(playlist.Reorder(r.PathValue("id"), r.PathValue("track"), *body.Index))
}

func respondPlaylist(w http.ResponseWriter) func(*playlist.Playlist, error) {
	return func(p *playlist.Playlist, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, "playlist", p)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
