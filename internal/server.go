package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/skilldepot/skilldepot/internal/config"
	"github.com/skilldepot/skilldepot/internal/importer"
	"github.com/skilldepot/skilldepot/internal/skill"
	"github.com/skilldepot/skilldepot/pkg/cerr"
	"github.com/skilldepot/skilldepot/pkg/clog"
)

type Server struct {
	server         *http.Server
	env            *config.Env
	skillServer    *skill.Server
	importerServer *importer.Server
}

func NewServer(
	env *config.Env,
	skillServer *skill.Server,
	importerServer *importer.Server,
) *Server {
	return &Server{
		env:            env,
		skillServer:    skillServer,
		importerServer: importerServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it on shutdown also cancels in-flight request contexts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONEnvelopeChiMiddleware(),
		)
		s.skillServer.RegisterRoutes(r)
		s.importerServer.RegisterRoutes(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(mux), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
