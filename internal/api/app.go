package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npuzant/peerchat/internal/config"
	"github.com/npuzant/peerchat/internal/server"
)

// PeerChatApp is the HTTP surface of the coordinator. It exposes only the
// websocket upgrade endpoint (plus expvar on the shared mux); everything
// else happens over the upgraded connection.
type PeerChatApp struct {
	log            *log.Logger
	mux            *http.Server
	coord          *server.Coordinator
	allowedOrigins []string
}

func NewPeerChatApp(mux *http.ServeMux, logger *log.Logger, coord *server.Coordinator, cfg *config.Config) *PeerChatApp {
	s := &PeerChatApp{
		log:            logger,
		coord:          coord,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
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

func (s *PeerChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *PeerChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
