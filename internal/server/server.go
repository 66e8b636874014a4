// Package server exposes the audit engine and DAS classifier over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/parcel-audit/internal/audit"
	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/rates"
	"github.com/rezonia/parcel-audit/internal/reconstruct"
)

// Config holds server configuration
type Config struct {
	Address      string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool

	Rates       *rates.Model
	AuditConfig audit.Config
	Tolerance   reconstruct.Options
}

// Server hosts the audit API. The DAS table is republished atomically on
// ingest, so classify and audit requests always read a consistent
// snapshot and never block behind a write.
type Server struct {
	config *Config
	router *gin.Engine
	http   *http.Server
	table  atomic.Pointer[das.Table]

	// mu serializes ingests; the builder is not safe for concurrent use.
	// Readers go through the atomic table pointer and never take the lock.
	mu      sync.Mutex
	builder *das.Builder
}

// NewServer creates a new API server around an initial DAS table. A nil
// table starts empty.
func NewServer(config *Config, initial *das.Table) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Rates == nil {
		config.Rates = rates.Default()
	}
	if config.Tolerance == (reconstruct.Options{}) {
		config.Tolerance = reconstruct.DefaultOptions()
	}
	if config.AuditConfig.SampleLimit == 0 {
		config.AuditConfig = audit.DefaultConfig()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:  config,
		router:  router,
		builder: das.NewBuilder(),
	}
	if initial == nil {
		initial = s.builder.Publish()
	} else {
		s.builder.IngestEntries(initial.Export())
	}
	s.table.Store(initial)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/audit", s.handleAudit)
		v1.POST("/das/ingest", s.handleIngest)
		v1.GET("/das/classify", s.handleClassify)
		v1.GET("/das/export", s.handleExport)
	}
}

// Start runs the HTTP server until Shutdown or failure.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.http.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.config.Version,
		DASZips: s.table.Load().Len(),
	})
}

func (s *Server) handleIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	records := make([]das.ChangeRecord, 0, len(req.Records))
	var errs []string
	for _, r := range req.Records {
		effective, err := time.Parse("2006-01-02", r.EffectiveDate)
		if err != nil {
			errs = append(errs, r.Zip+": "+err.Error())
			continue
		}
		records = append(records, das.ChangeRecord{
			Kind:          r.Kind,
			ZipOrRange:    r.Zip,
			EffectiveDate: effective,
		})
	}

	// Build-then-publish under the lock: readers keep the old snapshot
	// until the new one is fully built, and a slower ingest can never
	// overwrite a later one's table.
	s.mu.Lock()
	inserted, feedErrs := s.builder.IngestFeed(records)
	table := s.builder.Publish()
	s.table.Store(table)
	s.mu.Unlock()

	for _, err := range feedErrs {
		errs = append(errs, err.Error())
	}

	c.JSON(http.StatusOK, IngestResponse{
		Inserted: inserted,
		Errors:   errs,
		Zips:     table.Len(),
	})
}

func (s *Server) handleClassify(c *gin.Context) {
	zip := c.Query("zip")
	if zip == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "zip query parameter required"})
		return
	}
	asOf := time.Now()
	if v := c.Query("as_of"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of: " + err.Error()})
			return
		}
		asOf = t
	}

	tier := s.table.Load().Classify(zip, asOf)
	c.JSON(http.StatusOK, ClassifyResponse{Zip: zip, AsOf: asOf, Tier: string(tier)})
}

func (s *Server) handleExport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": s.table.Load().Export()})
}

func (s *Server) handleAudit(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if len(req.Shipments) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no shipments in request"})
		return
	}

	report, err := s.runAudit(c.Request.Context(), req.Shipments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) runAudit(ctx context.Context, shipments []model.ShipmentRecord) (*model.AuditReport, error) {
	recon := reconstruct.New(s.config.Rates, s.table.Load(), s.config.Tolerance)
	engine := audit.NewEngine(recon, s.config.AuditConfig)
	return engine.Run(ctx, shipments)
}
