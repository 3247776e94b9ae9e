// Package httpapi serves the annotation pipeline over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tliron/commonlog"

	"github.com/cognicore/kafparse/pkg/kafparse/config"
	"github.com/cognicore/kafparse/pkg/kafparse/parser"
	"github.com/cognicore/kafparse/pkg/kafparse/store"
	"github.com/cognicore/kafparse/pkg/kafparse/store/memstore"
)

// DefaultMaxBody bounds the size of a posted document.
const DefaultMaxBody = 16 << 20

// Options configures a Server.
type Options struct {
	// Base is the configuration requests start from; query parameters
	// override it per request.
	Base config.Config
	// Registry is shared by all requests. A new one is created when nil.
	Registry *parser.Registry
	// Cache defaults to an in-memory cache.
	Cache   store.Cache
	Logger  commonlog.Logger
	MaxBody int64
}

// Server is the HTTP API of the pipeline.
type Server struct {
	router   chi.Router
	base     config.Config
	registry *parser.Registry
	cache    store.Cache
	log      commonlog.Logger
	maxBody  int64
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = parser.NewRegistry(parser.Options{MaxLength: opts.Base.MaxLength})
	}
	if opts.Cache == nil {
		opts.Cache = memstore.New()
	}
	if opts.Logger == nil {
		opts.Logger = commonlog.GetLogger("kafparse.http")
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	s := &Server{
		base:     opts.Base,
		registry: opts.Registry,
		cache:    opts.Cache,
		log:      opts.Logger,
		maxBody:  opts.MaxBody,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/models", s.handleModels)
	r.Get("/cache", s.handleCacheStats)
	r.Post("/parse", s.handleParse)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
