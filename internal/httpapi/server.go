// Package httpapi exposes candidates, jobs, imports and matching over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/smartmatch/internal/ai"
	"github.com/spigell/smartmatch/internal/blob"
	"github.com/spigell/smartmatch/internal/events"
	"github.com/spigell/smartmatch/internal/importer"
	"github.com/spigell/smartmatch/internal/logger"
	"github.com/spigell/smartmatch/internal/storage"
	"github.com/spigell/smartmatch/internal/validation"
)

const (
	defaultMaxUpload   = 10 << 20
	defaultReviewLimit = 30 * time.Second
	shutdownTimeout    = 30 * time.Second
)

// Deps are the collaborators the handlers call into. Archive, Events and
// Reviewer are optional.
type Deps struct {
	Store    storage.Store
	Importer *importer.Importer
	Archive  blob.Archive
	Events   events.Publisher
	Reviewer ai.Reviewer
	Logger   *zap.Logger
}

// Options tune the router.
type Options struct {
	// MatchRate limits match requests per second. Zero disables the limit.
	MatchRate  float64
	MatchBurst int
	// MaxUploadBytes caps resume and CSV uploads.
	MaxUploadBytes int64
	ReviewTimeout  time.Duration
	Debug          bool
}

type handler struct {
	store     storage.Store
	importer  *importer.Importer
	archive   blob.Archive
	events    events.Publisher
	reviewer  ai.Reviewer
	validator *validation.Validator
	log       *zap.Logger
	opts      Options
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.ReviewTimeout <= 0 {
		opts.ReviewTimeout = defaultReviewLimit
	}

	h := &handler{
		store:     deps.Store,
		importer:  deps.Importer,
		archive:   deps.Archive,
		events:    deps.Events,
		reviewer:  deps.Reviewer,
		validator: validation.New(),
		log:       logger.Component(deps.Logger, "http"),
		opts:      opts,
	}
	if h.archive == nil {
		h.archive = blob.Nop{}
	}
	if h.events == nil {
		h.events = events.Nop{}
	}
	if h.importer == nil {
		h.importer = importer.New(deps.Store, importer.Options{Logger: deps.Logger})
	}

	router := gin.New()
	router.MaxMultipartMemory = opts.MaxUploadBytes
	router.Use(requestID(h.log), accessLog(), recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders:   []string{"Content-Length", headerRequestID, headerSkipped},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", h.health)

	api := router.Group("/api")

	candidates := api.Group("/candidates")
	candidates.POST("", h.createCandidate)
	candidates.GET("", h.listCandidates)
	candidates.GET("/:id", h.getCandidate)
	candidates.POST("/:id/resume", h.uploadResume)

	jobs := api.Group("/jobs")
	jobs.POST("", h.createJob)
	jobs.GET("", h.listJobs)
	jobs.GET("/:id", h.getJob)
	jobs.GET("/:id/ranking", h.rankCandidates)
	jobs.GET("/:id/matches", h.listMatches)

	match := api.Group("/match")
	match.GET("/rules", h.rules)
	match.POST("/:job_id/:candidate_id", rateLimit(opts.MatchRate, opts.MatchBurst), h.match)

	imports := api.Group("/imports/candidates")
	imports.POST("/csv", h.importCSV)
	imports.POST("/:source", h.importJSON)

	search := api.Group("/search")
	search.GET("/candidates", h.searchCandidates)
	search.GET("/jobs", h.searchJobs)

	return router
}

// rateLimit rejects requests above r per second with 429.
func rateLimit(r float64, burst int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(r), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	log = logger.Component(log, "http")

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
