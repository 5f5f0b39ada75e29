// Package web serves the studio UI and its JSON API.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

//go:embed all:frontend_dist
var frontendFS embed.FS

// PickFunc opens a native file dialog and returns the chosen path.
type PickFunc func() (string, error)

// Options configures the HTTP surface.
type Options struct {
	// AllowedOrigins lists CORS origins; a single "*" wildcard per entry is
	// allowed, e.g. "http://localhost:*".
	AllowedOrigins []string
	// NativePicker enables POST /api/sessions/{id}/pick.
	NativePicker bool
	// Picker replaces the zenity dialog (tests).
	Picker PickFunc
	// MaxUploadBytes caps the image part of an upload.
	MaxUploadBytes int64
}

// Server routes requests to the session store.
type Server struct {
	store   *studio.Store
	catalog *presets.Catalog
	opts    Options
	router  chi.Router
}

// New builds the router.
func New(store *studio.Store, catalog *presets.Catalog, opts Options) *Server {
	if opts.Picker == nil {
		opts.Picker = pickImageFile
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = studio.DefaultMaxUploadBytes
	}
	s := &Server{store: store, catalog: catalog, opts: opts}
	s.router = s.buildRouter()
	return s
}

// Router returns the root handler.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(withMetrics)

		// Hijacking needs the raw writer, so events stay outside gzip.
		r.Get("/sessions/{id}/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

			r.Get("/presets", s.handlePresets)
			r.Post("/sessions", s.handleCreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Use(s.withSession)
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/upload", s.handleUpload)
				r.Post("/pick", s.handlePick)
				r.Post("/generate", s.handleGenerate)
				r.Post("/cancel", s.handleCancel)
				r.Post("/reset", s.handleReset)
				r.Post("/dismiss", s.handleDismiss)
				r.Get("/images/{ref}", s.handleImage)
				r.Get("/export", s.handleExport)
				r.Get("/bundle", s.handleBundle)
			})
		})
	})

	r.Handle("/*", frontendHandler())
	return r
}

// frontendHandler serves the embedded UI with an index.html fallback.
func frontendHandler() http.Handler {
	sub, err := fs.Sub(frontendFS, "frontend_dist")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if path := r.URL.Path; path != "/" {
			f, err := sub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
