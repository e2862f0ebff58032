package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bommel/internal/cache"
	"bommel/internal/core"
	"bommel/internal/log"
	"bommel/internal/middleware/ratelimit"
	"bommel/internal/middleware/security"
	"bommel/internal/middleware/trace"
	"bommel/internal/ports"
	"bommel/internal/services"
	appweb "bommel/web"
)

// Config holds the server knobs that come from the environment.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
}

// PingFunc reports whether the backend is reachable, for /readyz.
type PingFunc func(ctx context.Context) error

type Server struct {
	http.Server
	templates   *template.Template
	coordinator *services.Coordinator
	statistics  ports.StatisticsReader
	ping        PingFunc
	logger      *log.Logger

	// treeCache holds rendered tree JSON per statistics mode. Every
	// mutation purges it.
	treeCache    *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server. statistics may differ from the coordinator's
// collaborator, e.g. a read replica; ping may be nil.
func NewServer(cfg Config, coord *services.Coordinator, statistics ports.StatisticsReader, ping PingFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		coordinator:  coord,
		statistics:   statistics,
		ping:         ping,
		logger:       logger,
		treeCache:    cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(logger.WithComponent(log.ComponentCache)),
		detector:     security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		startedAt:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.cacheManager.Register(s.treeCache)
	if cfg.CacheTTL > 0 {
		s.cacheManager.StartCleanup(cfg.CacheTTL)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/bommels", s.handleTree)
	mux.HandleFunc("POST /api/bommels", s.handleCreate)
	mux.HandleFunc("GET /api/bommels/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/bommels/{id}", s.handleRename)
	mux.HandleFunc("DELETE /api/bommels/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/bommels/{id}/targets", s.handleTargets)
	mux.HandleFunc("POST /api/bommels/{id}/move", s.handleMove)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)

	var handler http.Handler = mux
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, isMutation, s.rateLimited)(handler)
	}
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)
	s.Handler = handler

	return s
}

func isMutation(r *http.Request) bool {
	return r.Method != http.MethodGet && r.Method != http.MethodHead
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, retry time.Duration) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	secs := int(retry.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", strconv.Itoa(secs)).
		Body(errorBody{Error: "rate limit exceeded, please try again later", Type: "rate_limited"}).
		Write(w)
}

// Shutdown gracefully shuts down the server and its background sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

const maxStyledDepth = 8

var templateFuncs = template.FuncMap{
	"euros": func(m core.Money) string { return m.String() },
	// depthClass caps nesting at the deepest level the stylesheet knows.
	"depthClass": func(depth int) string { return "depth-" + strconv.Itoa(min(depth, maxStyledDepth)) },
}

type indexData struct {
	Title   string
	Mode    core.StatisticsMode
	Rows    []pageRow
	Omitted []int64
}

type pageRow struct {
	ID         int64
	Depth      int
	Emoji      string
	Label      string
	Figures    core.Statistics
	SubBommels int
	Virtual    bool
	Root       bool
}
