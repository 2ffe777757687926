// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ammario/tlru"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"githop/internal/ai"
	"githop/internal/database"
	"githop/internal/gharchive"
	"githop/internal/jobs"
	"githop/internal/model"
)

// Worker is the set of background jobs the API can trigger.
type Worker interface {
	SyncTop(ctx context.Context) error
	SyncGrowing(ctx context.Context) error
	SyncTrending(ctx context.Context) error
	SyncAll(ctx context.Context) error
	SyncTrends(ctx context.Context, period gharchive.Period) error
	HydrateStubs(ctx context.Context, limit int) error
	BackfillCommitActivity(ctx context.Context, mode database.BackfillMode, limit int) error
	BackfillRecentCommits(ctx context.Context, mode database.BackfillMode, limit int) error
	BackfillContributors(ctx context.Context, mode database.BackfillMode, limit int) error
	SyncDevelopers(ctx context.Context, mission model.Mission, target int) error
	GenerateEmbeddings(ctx context.Context, limit int) error
}

// JobRunner starts and tracks background jobs.
type JobRunner interface {
	Submit(name string, fn jobs.Func) (jobs.Handle, error)
	Get(id string) (jobs.Handle, error)
	List() []jobs.Handle
	Cancel(id string) (jobs.Handle, error)
}

// Config holds the HTTP-layer settings.
type Config struct {
	CacheTTL       time.Duration
	CacheSize      int
	AllowedOrigins []string
	RequestTimeout time.Duration
	ServiceName    string
}

// Handler is the container for API dependencies.
type Handler struct {
	store     database.Store
	worker    Worker
	runner    JobRunner
	assistant ai.Assistant
	embedder  ai.Embedder
	logger    *slog.Logger
	cache     *tlru.Cache[string, []byte]
	cacheTTL  time.Duration
	summaries *tlru.Cache[string, string]
	now       func() time.Time
}

// Deps are the collaborators of the router. Embedder may be nil.
type Deps struct {
	Store     database.Store
	Worker    Worker
	Runner    JobRunner
	Assistant ai.Assistant
	Embedder  ai.Embedder
	Logger    *slog.Logger
}

const summaryTTL = 24 * time.Hour

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(d Deps, cfg Config) http.Handler {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "githop"
	}
	h := &Handler{
		store:     d.Store,
		worker:    d.Worker,
		runner:    d.Runner,
		assistant: d.Assistant,
		embedder:  d.Embedder,
		logger:    d.Logger,
		cache:     tlru.New[string, []byte](tlru.ConstantCost, cfg.CacheSize),
		cacheTTL:  cfg.CacheTTL,
		summaries: tlru.New[string, string](tlru.ConstantCost, cfg.CacheSize),
		now:       time.Now,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors(cfg.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/stats", h.getStats)

		r.Route("/repos", func(r chi.Router) {
			r.Get("/", h.listCategory)
			r.Get("/filter", h.filterRepositories)
			r.Get("/languages", h.listLanguages)
			r.Get("/search", h.searchRepositories)
			r.Get("/{owner}/{name}", h.getRepository)
			r.Get("/{owner}/{name}/readme", h.getReadme)
			r.Get("/{owner}/{name}/summary", h.getSummary)
		})

		r.Route("/developers", func(r chi.Router) {
			r.Get("/", h.listDevelopers)
			r.Get("/search", h.searchDevelopers)
			r.Get("/{login}", h.getDeveloper)
		})

		r.Post("/sync/{kind}", h.triggerSync)
		r.Post("/sync/trends/{period}", h.triggerTrends)
		r.Route("/workers", func(r chi.Router) {
			r.Post("/hydrate", h.triggerHydrate)
			r.Post("/commit-activity", h.triggerBackfill(database.BackfillCommitActivity))
			r.Post("/recent-commits", h.triggerBackfill(database.BackfillRecentCommits))
			r.Post("/contributors", h.triggerBackfill(database.BackfillContributors))
			r.Post("/developers/{mission}", h.triggerDevelopers)
			r.Post("/embeddings", h.triggerEmbeddings)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.listJobs)
			r.Get("/{id}", h.getJob)
			r.Delete("/{id}", h.cancelJob)
		})
	})

	// Legacy trigger aliases.
	r.Post("/fetch-growing", h.legacyTrigger(model.CategoryGrowing))
	r.Post("/fetch-trending", h.legacyTrigger(model.CategoryTrending))

	return otelhttp.NewHandler(r, cfg.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("Handled request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).Round(time.Microsecond).String(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// cors allows the listed origins; "*" allows any.
func cors(allowed []string) func(http.Handler) http.Handler {
	wildcard := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		set[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || set[origin]) {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cached serves the JSON encoding of fn's result, reusing it for the cache TTL.
func (h *Handler) cached(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	build := func() ([]byte, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	var (
		body []byte
		err  error
	)
	if h.cacheTTL > 0 {
		body, err = h.cache.Do(r.URL.RequestURI(), build, h.cacheTTL)
	} else {
		body, err = build()
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithRaw(w, http.StatusOK, body)
}

// healthCheck reports process and database health.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Database ping failed", "error", err)
		status = "unavailable"
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": status})
}

// getStats returns the overview counters.
// GET /api/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func() (any, error) {
		overview, err := h.store.GetOverview(r.Context())
		if err != nil {
			return nil, err
		}
		return itemResponse{Data: overview}, nil
	})
}
