package server

import (
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"homestream/internal/assets"
	"homestream/internal/auth"
	"homestream/internal/media"
	"homestream/internal/stream"
)

// Server wires the catalog, asset store and delivery engine behind the HTTP
// surface. Every media endpoint sits behind the bearer-token guard.
type Server struct {
	catalog *media.SnapshotCache
	assets  *assets.Store
	engine  *stream.Engine
	auth    *auth.Service
	log     zerolog.Logger
}

func New(catalog *media.SnapshotCache, store *assets.Store, engine *stream.Engine, authSvc *auth.Service, log zerolog.Logger) *Server {
	return &Server{catalog: catalog, assets: store, engine: engine, auth: authSvc, log: log}
}

// Routes builds the chi router for the full API surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireToken)
		r.With(httprate.LimitByIP(120, time.Minute)).Route("/api", func(r chi.Router) {
			r.Get("/media", s.handleMedia)
			r.Get("/tv-shows", s.handleTVShows)
			r.Get("/tv-shows/{seriesName}", s.handleTVShowDetail)
			r.Get("/tv-shows/{seriesName}/thumbnail", s.handleTVShowThumbnail)
		})
		r.Get("/stream/{filename}", s.handleStream)
		r.Get("/images/{filename}", s.handleImage)
		r.Get("/subtitles/{filename}", s.handleSubtitles)
		r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/",
			http.FileServer(http.Dir(s.assets.ThumbnailDir()))))
		r.Handle("/covers/*", http.StripPrefix("/covers/",
			http.FileServer(http.Dir(s.assets.CoverDir()))))
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		errorJSON(w, http.StatusUnauthorized, "invalid password")
		return
	}
	token, err := s.auth.IssueToken("admin")
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "token error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		s.log.Error().Err(err).Msg("catalog build failed")
		errorJSON(w, http.StatusInternalServerError, "failed to retrieve media files")
		return
	}
	writeJSON(w, http.StatusOK, s.decorate(r, catalog))
}

// decorate returns a copy of the catalog with thumbnail references filled in.
// The shared snapshot is never mutated; per-entry thumbnail failures degrade
// to a null thumbnail, never a failed response.
func (s *Server) decorate(r *http.Request, catalog *media.Catalog) *media.Catalog {
	out := &media.Catalog{
		Movies:  s.decorateCategory(r, catalog.Movies),
		TVShows: s.decorateCategory(r, catalog.TVShows),
		Images:  s.decorateCategory(r, catalog.Images),
		Audio:   s.decorateCategory(r, catalog.Audio),
	}
	return out
}

func (s *Server) decorateCategory(r *http.Request, cat *media.Category) *media.Category {
	if cat == nil {
		return nil
	}
	out := &media.Category{Name: cat.Name, Files: s.decorateEntries(r, cat.Files)}
	if cat.Series != nil {
		out.Series = make(map[string]*media.Series, len(cat.Series))
		for name, series := range cat.Series {
			copied := &media.Series{
				Name:     series.Name,
				Episodes: s.decorateEntries(r, series.Episodes),
			}
			for _, ep := range copied.Episodes {
				if ep.Thumbnail != "" {
					copied.Thumbnail = ep.Thumbnail
					break
				}
			}
			out.Series[name] = copied
		}
	}
	return out
}

func (s *Server) decorateEntries(r *http.Request, entries []media.Entry) []media.Entry {
	out := make([]media.Entry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].Thumbnail = s.thumbnailRef(r, out[i])
	}
	return out
}

// thumbnailRef resolves the client-facing URL path of an entry's thumbnail,
// producing the poster frame on demand for video.
func (s *Server) thumbnailRef(r *http.Request, entry media.Entry) string {
	thumbPath, err := s.assets.Thumbnail(r.Context(), entry)
	if err != nil {
		s.log.Warn().Err(err).Str("file", entry.Name).Msg("thumbnail generation failed")
		return ""
	}
	if thumbPath == "" {
		return ""
	}
	switch entry.Kind {
	case media.KindVideo:
		return "/thumbnails/" + path.Base(thumbPath)
	case media.KindAudio:
		return "/covers/" + path.Base(thumbPath)
	default:
		return ""
	}
}

type seriesSummary struct {
	Name            string `json:"name"`
	EpisodeCount    int    `json:"episodeCount"`
	Type            string `json:"type"`
	Category        string `json:"category"`
	CategoryDisplay string `json:"categoryDisplay"`
	Thumbnail       string `json:"thumbnail,omitempty"`
}

func (s *Server) handleTVShows(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		s.log.Error().Err(err).Msg("catalog build failed")
		errorJSON(w, http.StatusInternalServerError, "failed to retrieve tv shows")
		return
	}
	summaries := []seriesSummary{}
	if catalog.TVShows != nil {
		decorated := s.decorateCategory(r, catalog.TVShows)
		for _, series := range decorated.Series {
			summaries = append(summaries, seriesSummary{
				Name:            series.Name,
				EpisodeCount:    len(series.Episodes),
				Type:            "tvshow",
				Category:        media.CategoryTVShows,
				CategoryDisplay: "TV Shows",
				Thumbnail:       series.Thumbnail,
			})
		}
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleTVShowDetail(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to retrieve tv show details")
		return
	}
	series, ok := catalog.FindSeries(chi.URLParam(r, "seriesName"))
	if !ok {
		errorJSON(w, http.StatusNotFound, "tv show not found")
		return
	}
	copied := &media.Series{Name: series.Name, Episodes: s.decorateEntries(r, series.Episodes)}
	for _, ep := range copied.Episodes {
		if ep.Thumbnail != "" {
			copied.Thumbnail = ep.Thumbnail
			break
		}
	}
	writeJSON(w, http.StatusOK, copied)
}

func (s *Server) handleTVShowThumbnail(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to retrieve tv show thumbnail")
		return
	}
	series, ok := catalog.FindSeries(chi.URLParam(r, "seriesName"))
	if !ok || len(series.Episodes) == 0 {
		errorJSON(w, http.StatusNotFound, "tv show not found")
		return
	}
	thumbPath, err := s.assets.Thumbnail(r.Context(), series.Episodes[0])
	if err != nil || thumbPath == "" {
		errorJSON(w, http.StatusNotFound, "thumbnail not found")
		return
	}
	http.ServeFile(w, r, thumbPath)
}

func (s *Server) resolveEntry(w http.ResponseWriter, r *http.Request) (media.Entry, bool) {
	catalog, err := s.catalog.Get()
	if err != nil {
		s.log.Error().Err(err).Msg("catalog build failed")
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return media.Entry{}, false
	}
	name := chi.URLParam(r, "filename")
	entry, ok := catalog.Find(name)
	if !ok {
		errorJSON(w, http.StatusNotFound, "file not found")
		return media.Entry{}, false
	}
	return entry, true
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.resolveEntry(w, r)
	if !ok {
		return
	}
	s.engine.ServeFile(w, r, entry.Path)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	entry, ok := catalog.Find(chi.URLParam(r, "filename"))
	if !ok || entry.Kind != media.KindImage {
		errorJSON(w, http.StatusNotFound, "image not found")
		return
	}
	ct := media.ContentType(entry.Path)
	if ct == "application/octet-stream" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", ct)
	http.ServeFile(w, r, entry.Path)
}

// handleSubtitles resolves the media entry by full name or extension-less base
// name, then looks for a sidecar subtitle beside it.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Get()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	name := chi.URLParam(r, "filename")
	entry, ok := catalog.Find(name)
	if !ok {
		for _, candidate := range catalog.Entries() {
			base := candidate.Name[:len(candidate.Name)-len(path.Ext(candidate.Name))]
			if base == name {
				entry, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		errorJSON(w, http.StatusNotFound, "media file not found")
		return
	}
	s.engine.ServeSubtitles(w, r, entry.Path)
}
