package http

import (
	"log/slog"
	"net/http"
	"time"

	"genesisgraph/internal/config"
	"genesisgraph/internal/domain"
	"genesisgraph/internal/infra/cachemem"
	"genesisgraph/internal/infra/db"
	"genesisgraph/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Server is the verification API. All endpoints are stateless except the
// optional audit-record store.
type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *slog.Logger

	verifyUC       *usecase.VerifyAttestation
	transparencyUC *usecase.VerifyTransparency
	resolver       usecase.KeyResolver
	records        *db.RecordRepository

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration

	respCache    *cachemem.Cache
	respCacheTTL time.Duration
}

type ServerDeps struct {
	Verify       *usecase.VerifyAttestation
	Transparency *usecase.VerifyTransparency
	Resolver     usecase.KeyResolver
	Records      *db.RecordRepository
	RateLimiter  domain.RateLimiter
	Logger       *slog.Logger
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:               cfg,
		r:                 r,
		log:               deps.Logger,
		verifyUC:          deps.Verify,
		transparencyUC:    deps.Transparency,
		resolver:          deps.Resolver,
		records:           deps.Records,
		rateLimiter:       deps.RateLimiter,
		rateLimitRequests: cfg.RateLimitRequests,
		rateLimitWindow:   cfg.RateLimitWindow,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if cfg.VerifyCacheTTL > 0 {
		s.respCache = cachemem.New()
		s.respCacheTTL = cfg.VerifyCacheTTL
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.records != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/attestations/verify", s.handleVerifyAttestation)
		v1.POST("/transparency/verify", s.handleVerifyTransparency)
		v1.POST("/dids/resolve", s.handleResolveDID)
		v1.GET("/records/:record_id", s.handleGetRecord)
		v1.GET("/records", s.handleListRecords)
	}

	s.r.NoRoute(s.handleNoRoute)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
