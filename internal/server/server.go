// Package server exposes an Analyzer over HTTP. It serves the analysis
// endpoint and its legacy alias, a health probe and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/cache"
)

var (
	// ErrConfigValidation is returned by New for invalid settings.
	ErrConfigValidation = errors.New("invalid server configuration")
	// ErrServe wraps listener and serving failures returned by Run.
	ErrServe = errors.New("http server failed")
)

const (
	DefaultAddr              = ":5000"
	DefaultMaxCodeChars      = 1_000_000
	DefaultRequestsPerMinute = 10
	DefaultBurst             = 10
	DefaultCacheSize         = cache.DefaultMemorySize
	DefaultCacheTTL          = 10 * time.Minute
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 2 * time.Minute
	DefaultShutdownTimeout   = 10 * time.Second

	maxFilenameChars = 255
	maxClients       = 10_000
	clientIdleTTL    = time.Hour
)

// Response messages shared with existing clients of the service.
const (
	msgNotJSON       = "Request must be JSON"
	msgMissingCode   = "Missing required field: code"
	msgCodeNotString = "Code must be a string"
	msgCodeTooLarge  = "Code size exceeds limit"
	msgFilenameType  = "Filename must be a string"
	msgFilenameLong  = "Filename is too long"
	msgInternal      = "An internal server error occurred"
	msgRateLimited   = "Rate limit exceeded"
	msgNotFound      = "Not found"
	msgCancelled     = "Request cancelled"
)

// Config holds the HTTP settings. A zero RequestsPerMinute disables rate
// limiting and a zero CacheSize disables the response cache.
type Config struct {
	Addr              string        `mapstructure:"addr"`
	MaxCodeChars      int           `mapstructure:"maxCodeChars"`
	RequestsPerMinute int           `mapstructure:"requestsPerMinute"`
	Burst             int           `mapstructure:"burst"`
	CacheSize         int           `mapstructure:"cacheSize"`
	CacheTTL          time.Duration `mapstructure:"cacheTTL"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Addr:              DefaultAddr,
		MaxCodeChars:      DefaultMaxCodeChars,
		RequestsPerMinute: DefaultRequestsPerMinute,
		Burst:             DefaultBurst,
		CacheSize:         DefaultCacheSize,
		CacheTTL:          DefaultCacheTTL,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
	}
}

func (c *Config) validate() error {
	switch {
	case c.MaxCodeChars < 0:
		return fmt.Errorf("%w: maxCodeChars cannot be negative", ErrConfigValidation)
	case c.RequestsPerMinute < 0:
		return fmt.Errorf("%w: requestsPerMinute cannot be negative", ErrConfigValidation)
	case c.Burst < 0:
		return fmt.Errorf("%w: burst cannot be negative", ErrConfigValidation)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cacheSize cannot be negative", ErrConfigValidation)
	}
	defaults := DefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.MaxCodeChars == 0 {
		c.MaxCodeChars = defaults.MaxCodeChars
	}
	if c.Burst == 0 {
		c.Burst = max(c.RequestsPerMinute, 1)
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	ErrorID string `json:"error_id,omitempty"`
}

type healthBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Server serves one Analyzer. It is safe for concurrent use.
type Server struct {
	cfg       Config
	analyzer  *codelens.Analyzer
	router    *gin.Engine
	validate  *validator.Validate
	metrics   *metrics
	logger    *slog.Logger
	responses *cache.Memory[codelens.AnalysisResult]

	limiterMu sync.Mutex
	limiters  *cache.Memory[*rate.Limiter]
}

// New builds a Server around analyzer. A nil handler discards logs.
func New(analyzer *codelens.Analyzer, cfg Config, handler slog.Handler) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("%w: analyzer is required", ErrConfigValidation)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		handler = slog.DiscardHandler
	}

	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  newMetrics(),
		logger:   slog.New(handler).With(slog.String("component", "server")),
	}
	if cfg.CacheSize > 0 {
		s.responses = cache.NewMemory[codelens.AnalysisResult](cfg.CacheSize, cfg.CacheTTL)
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiters = cache.NewMemory[*rate.Limiter](maxClients, clientIdleTTL)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.metrics.middleware(), s.requestLogger(), gin.CustomRecovery(s.recovered), securityHeaders())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: msgNotFound})
	})

	analysis := r.Group("/", s.rateLimit())
	analysis.POST("/api/analyze", s.handleAnalyze)
	analysis.POST("/analyze", s.handleAnalyze)
	r.OPTIONS("/analyze", handlePreflight)

	r.GET("/api/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %w", ErrServe, s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured timeout. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%w: shutdown: %w", ErrServe, err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) handleAnalyze(c *gin.Context) {
	req, status, msg := s.decodeRequest(c)
	if status != 0 {
		c.JSON(status, errorBody{Error: msg})
		return
	}

	key := cache.Fingerprint(s.analyzer.SettingsHash(), req.Filename, req.Code)
	if s.responses != nil {
		if res, ok := s.responses.Get(key); ok {
			s.metrics.cacheHits.Inc()
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, res)
			return
		}
		s.metrics.cacheMisses.Inc()
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		s.analysisError(c, err)
		return
	}
	s.metrics.analyses.WithLabelValues(res.Language, strconv.FormatBool(res.Meta.Degraded)).Inc()

	if s.responses != nil {
		s.responses.Add(key, res)
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, res)
}

// decodeRequest reads the analysis body. A non-zero status reports a client
// error and its message.
func (s *Server) decodeRequest(c *gin.Context) (codelens.AnalysisRequest, int, string) {
	var req codelens.AnalysisRequest
	if c.ContentType() != binding.MIMEJSON {
		return req, http.StatusBadRequest, msgNotJSON
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, http.StatusRequestEntityTooLarge, msgCodeTooLarge
		}
		return req, http.StatusBadRequest, msgNotJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return req, http.StatusBadRequest, msgNotJSON
	}

	raw, ok := fields["code"]
	if !ok || string(raw) == "null" {
		return req, http.StatusBadRequest, msgMissingCode
	}
	if err := json.Unmarshal(raw, &req.Code); err != nil {
		return req, http.StatusBadRequest, msgCodeNotString
	}
	if raw, ok := fields["filename"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &req.Filename); err != nil {
			return req, http.StatusBadRequest, msgFilenameType
		}
	}

	if err := s.validate.Var(req.Code, "max="+strconv.Itoa(s.cfg.MaxCodeChars)); err != nil {
		return req, http.StatusRequestEntityTooLarge, msgCodeTooLarge
	}
	if err := s.validate.Var(req.Filename, "omitempty,max="+strconv.Itoa(maxFilenameChars)); err != nil {
		return req, http.StatusBadRequest, msgFilenameLong
	}
	return req, 0, ""
}

// maxBodyBytes bounds the raw body: every character may take a six-byte
// JSON escape, plus room for the other fields.
func (s *Server) maxBodyBytes() int64 {
	return int64(s.cfg.MaxCodeChars)*6 + 64<<10
}

func (s *Server) analysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, codelens.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, errorBody{Error: "Code must not be empty"})
	case errors.Is(err, codelens.ErrInputTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, errorBody{Error: msgCodeTooLarge})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("Analysis abandoned", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: msgCancelled})
	default:
		s.internalError(c, err)
	}
}

// internalError answers 500 with a short id that is also logged, so a
// report from a client can be matched to the server log.
func (s *Server) internalError(c *gin.Context, cause any) {
	id := uuid.NewString()[:8]
	s.logger.Error("Request failed",
		slog.String("errorId", id),
		slog.String("path", c.Request.URL.Path),
		slog.Any("error", cause),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: msgInternal, ErrorID: id})
}

func (s *Server) recovered(c *gin.Context, r any) {
	s.internalError(c, fmt.Errorf("panic: %v", r))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthBody{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
}

func handlePreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
	c.Header("Access-Control-Allow-Methods", "POST,OPTIONS")
	c.Status(http.StatusOK)
}

// rateLimit applies a token bucket per client address.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiters == nil {
			c.Next()
			return
		}
		if !s.limiter(c.ClientIP()).Allow() {
			s.metrics.rateLimited.Inc()
			c.Header("Retry-After", strconv.Itoa(int((time.Minute/time.Duration(s.cfg.RequestsPerMinute)).Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: msgRateLimited})
			return
		}
		c.Next()
	}
}

func (s *Server) limiter(client string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	if l, ok := s.limiters.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.cfg.RequestsPerMinute)), s.cfg.Burst)
	s.limiters.Add(client, l)
	return l
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("client", c.ClientIP()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
