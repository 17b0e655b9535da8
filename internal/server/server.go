// Package server assembles the HTTP surface: route table, middleware
// chain, and the listener lifecycle.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veiledapp/veiled-backend/internal/auth"
	"github.com/veiledapp/veiled-backend/internal/config"
	"github.com/veiledapp/veiled-backend/internal/handler"
	"github.com/veiledapp/veiled-backend/internal/middleware"
)

// Handlers bundles the HTTP handlers the router mounts.
type Handlers struct {
	Likes    *handler.LikesHandler
	Matches  *handler.MatchesHandler
	Identity *handler.IdentityHandler
	Meetings *handler.MeetingsHandler
}

// NewRouter builds the full route table. Everything under /api sits
// behind bearer auth; /healthz does not.
func NewRouter(log *slog.Logger, tokens *auth.TokenService, h Handlers, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware(tokens))

		api.Route("/groups/{groupID}", func(g chi.Router) {
			g.Post("/likes", h.Likes.Express)
			g.Delete("/likes/{recipientID}", h.Likes.Withdraw)
			g.Get("/admirers", h.Likes.ListAdmirers)
			g.Get("/admirers/new", h.Likes.ListNewAdmirers)
			g.Get("/admirers/count", h.Likes.Count)
		})

		api.Get("/matches", h.Matches.List)
		api.Delete("/matches/{matchID}", h.Matches.Unmatch)

		api.Get("/users/{userID}", h.Identity.Get)

		api.Route("/meetings", func(m chi.Router) {
			m.Post("/", h.Meetings.Create)
			m.Post("/join", h.Meetings.Join)
			m.Delete("/{meetingID}/participation", h.Meetings.Leave)
			m.Put("/{meetingID}/interest", h.Meetings.DeclareInterest)
			m.Get("/{meetingID}/matches", h.Meetings.ListMatches)
		})
	})

	return r
}

type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger, tokens *auth.TokenService, h Handlers) *Server {
	router := NewRouter(log, tokens, h, cfg.HTTP.AllowedOrigins)

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
