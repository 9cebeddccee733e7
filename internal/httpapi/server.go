// Package httpapi exposes the info and download services over HTTP.
package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidfetch/vidfetch"
)

const jsonContentType = "application/json"

//go:embed index.html
var indexHTML []byte

// Server runs the vidfetch HTTP API.
type Server struct {
	info      *vidfetch.InfoService
	downloads *vidfetch.Orchestrator
	log       *zap.Logger
	srv       *http.Server
}

func NewServer(info *vidfetch.InfoService, downloads *vidfetch.Orchestrator, listenAddr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.L()
	}
	s := &Server{
		info:      info,
		downloads: downloads,
		log:       logger.Named("httpapi"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.chain(s.handleIndex))
	mux.HandleFunc("/get_info", s.chain(s.handleGetInfo))
	mux.HandleFunc("/download", s.chain(s.handleDownload))
	mux.HandleFunc("/healthz", s.chain(s.handleHealthz))

	s.srv = &http.Server{
		Addr:    listenAddr,
		Handler: mux,
		// No WriteTimeout: /download streams whole videos and must be
		// allowed to take as long as the client keeps reading.
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// chain attaches a request ID and logs the request before running h.
func (s *Server) chain(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		log := s.log.With(zap.String("request_id", requestID))
		r = r.WithContext(vidfetch.WithLogger(r.Context(), log))

		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		h(w, r)
	}
}

// Start listens and serves. Blocks until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server starting", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
