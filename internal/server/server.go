package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/nordleads/leadflow/internal/assignment"
	assignmentdomain "github.com/nordleads/leadflow/internal/assignment/domain"
	"github.com/nordleads/leadflow/internal/buyer"
	buyerdomain "github.com/nordleads/leadflow/internal/buyer/domain"
	"github.com/nordleads/leadflow/internal/catalog"
	catalogdomain "github.com/nordleads/leadflow/internal/catalog/domain"
	"github.com/nordleads/leadflow/internal/config"
	"github.com/nordleads/leadflow/internal/distribution"
	distributiondomain "github.com/nordleads/leadflow/internal/distribution/domain"
	"github.com/nordleads/leadflow/internal/eligibility"
	eligibilitydomain "github.com/nordleads/leadflow/internal/eligibility/domain"
	"github.com/nordleads/leadflow/internal/history"
	historydomain "github.com/nordleads/leadflow/internal/history/domain"
	"github.com/nordleads/leadflow/internal/lead"
	leaddomain "github.com/nordleads/leadflow/internal/lead/domain"
	"github.com/nordleads/leadflow/internal/ledger"
	ledgerdomain "github.com/nordleads/leadflow/internal/ledger/domain"
	"github.com/nordleads/leadflow/internal/observability"
	obsmiddleware "github.com/nordleads/leadflow/internal/observability/logger"
	obsmetrics "github.com/nordleads/leadflow/internal/observability/metrics"
	obstracing "github.com/nordleads/leadflow/internal/observability/tracing"
	"github.com/nordleads/leadflow/internal/settings"
	settingsdomain "github.com/nordleads/leadflow/internal/settings/domain"
	"github.com/nordleads/leadflow/internal/stats"
	statsdomain "github.com/nordleads/leadflow/internal/stats/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	lead.Module,
	buyer.Module,
	catalog.Module,
	assignment.Module,
	ledger.Module,
	history.Module,
	settings.Module,
	eligibility.Module,
	distribution.Module,
	stats.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	leadSvc         leaddomain.Service
	buyerSvc        buyerdomain.Service
	catalogSvc      catalogdomain.Service
	assignmentSvc   assignmentdomain.Service
	ledgerSvc       ledgerdomain.Service
	historySvc      historydomain.Service
	settingsSvc     settingsdomain.Service
	eligibilitySvc  eligibilitydomain.Service
	distributionSvc distributiondomain.Service
	statsSvc        statsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	LeadSvc         leaddomain.Service
	BuyerSvc        buyerdomain.Service
	CatalogSvc      catalogdomain.Service
	AssignmentSvc   assignmentdomain.Service
	LedgerSvc       ledgerdomain.Service
	HistorySvc      historydomain.Service
	SettingsSvc     settingsdomain.Service
	EligibilitySvc  eligibilitydomain.Service
	DistributionSvc distributiondomain.Service
	StatsSvc        statsdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		leadSvc:         p.LeadSvc,
		buyerSvc:        p.BuyerSvc,
		catalogSvc:      p.CatalogSvc,
		assignmentSvc:   p.AssignmentSvc,
		ledgerSvc:       p.LedgerSvc,
		historySvc:      p.HistorySvc,
		settingsSvc:     p.SettingsSvc,
		eligibilitySvc:  p.EligibilitySvc,
		distributionSvc: p.DistributionSvc,
		statsSvc:        p.StatsSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	leads := v1.Group("/leads")
	leads.POST("", s.CreateLead)
	leads.GET("/:id", s.GetLead)
	leads.PATCH("/:id/status", s.UpdateLeadStatus)
	leads.POST("/:id/distribute", s.DistributeLead)
	leads.POST("/:id/assign", s.AssignLeadManually)
	leads.GET("/:id/eligibility", s.GetLeadEligibility)
	leads.GET("/:id/history", s.ListLeadHistory)

	assignments := v1.Group("/assignments")
	assignments.GET("/:id", s.GetAssignment)
	assignments.POST("/:id/accept", s.AcceptAssignment)
	assignments.POST("/:id/reject", s.RejectAssignment)

	buyers := v1.Group("/buyers")
	buyers.POST("", s.CreateBuyer)
	buyers.GET("/:id", s.GetBuyer)
	buyers.POST("/:id/topup", s.TopUpBuyer)
	buyers.GET("/:id/transactions", s.ListBuyerTransactions)

	packages := v1.Group("/packages")
	packages.POST("", s.CreatePackage)
	packages.GET("/:id", s.GetPackage)

	v1.POST("/subscriptions", s.CreateSubscription)

	dist := v1.Group("/distribution")
	dist.GET("/stats", s.GetDistributionStats)
	dist.GET("/queue", s.GetDistributionQueue)

	v1.GET("/settings", s.GetSettings)
	v1.PUT("/settings", s.UpdateSettings)
}
