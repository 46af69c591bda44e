package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/mpruett/studiohub/internal/config"
	"github.com/mpruett/studiohub/internal/server"
)

type StudioApp struct {
	log            *log.Logger
	mux            *http.Server
	ss             *server.StudioServer
	signingKey     []byte
	allowedOrigins []string
}

func NewStudioApp(mux *http.ServeMux, logger *log.Logger, ss *server.StudioServer, cfg *config.Config) *StudioApp {
	s := &StudioApp{
		log:            logger,
		ss:             ss,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /api/healthz", s.healthCheck)
	mux.Handle("GET /api/studios/{id}/presence", s.authMiddleware(s.studioPresence))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *StudioApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *StudioApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
