package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labtrack/labtrack-auth/auth"
	"github.com/labtrack/labtrack-auth/equipment"
	"github.com/labtrack/labtrack-auth/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	repos     auth.Repos
	equipment equipment.Repo
}

func New(cfg config.Config, repos auth.Repos, equipmentRepo equipment.Repo, options ...auth.ServiceOption) (*Server, error) {
	authService, err := auth.NewService(repos, cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		repos:     repos,
		auth:      authService,
		equipment: equipmentRepo,
	}
	s.env = cfg.GetEnv()

	// Bootstrap: ensure an initial admin user exists
	if err := s.InitialiseSystem(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Str("method", method).Str("path", path).Msg("route")
}
