package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/indicatord/internal/api/models"
	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/logging"
	"github.com/smazurov/indicatord/internal/version"
)

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	indicator  Indicator
	eventBus   *events.Bus
	logger     *slog.Logger
}

const authRealm = `Basic realm="indicatord"`

var (
	errAuthRequired = errors.New("authentication required")
	errAuthType     = errors.New("invalid authentication type")
	errAuthFormat   = errors.New("invalid credentials format")
)

// credentials reads basic auth from the Authorization header, or from the
// auth query parameter for EventSource clients that cannot set headers.
func credentials(ctx huma.Context) (user, pass string, err error) {
	encoded := ctx.Query("auth")
	if h := ctx.Header("Authorization"); h != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(h, prefix) {
			return "", "", errAuthType
		}
		encoded = h[len(prefix):]
	}
	if encoded == "" {
		return "", "", errAuthRequired
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", errAuthFormat
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errAuthFormat
	}
	return user, pass, nil
}

// basicAuthMiddleware rejects requests to secured operations without
// matching credentials.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, err := credentials(ctx)
		if err == nil &&
			(subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1) {
			err = errors.New("invalid credentials")
		}
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}

		next(ctx)
	}
}

// Indicator is the part of the indicator manager the API drives.
type Indicator interface {
	Status() indicator.Status
	Indicate(kind arbiter.IndicateKind) error
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Indicator         Indicator
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("indicatord API", "1.0.0")
	config.Info.Description = "Signal injection and state inspection for the status indicator"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:       api,
		mux:       mux,
		options:   opts,
		indicator: opts.Indicator,
		eventBus:  opts.EventBus,
		logger:    logging.GetLogger("api"),
	}

	// CORS first, then logging, then auth
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Scrapers do not authenticate
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting indicatord API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the listener and every open connection, SSE streams included.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check that the daemon and its indicator pipeline are up",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		if s.indicator == nil {
			return &models.HealthResponse{Body: models.HealthData{Status: "degraded", Message: "indicator not running"}}, nil
		}
		return &models.HealthResponse{Body: models.HealthData{Status: "ok", Message: "indicator running"}}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{
			Body: version.Get(),
		}, nil
	})

	s.registerIndicatorRoutes()
	s.registerSignalRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
