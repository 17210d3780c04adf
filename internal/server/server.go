package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plantelhq/plantel/internal/audit"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/internal/config"
	"github.com/plantelhq/plantel/internal/observability"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	log     *zap.Logger
	cfg     *config.Config
	db      *gorm.DB
	metrics *observability.Metrics

	configSvc     configdomain.Service
	chargeQuery   chargedomain.Query
	generator     chargedomain.Generator
	snapshotSvc   chargedomain.Snapshot
	workflow      chargedomain.Workflow
	schoolYearSvc schoolyeardomain.Service
	paymentRepo   paymentdomain.Repository
	audit         audit.Service
}

type ServerParam struct {
	fx.In

	Log     *zap.Logger
	Cfg     *config.Config
	DB      *gorm.DB
	Metrics *observability.Metrics

	ConfigSvc     configdomain.Service
	ChargeQuery   chargedomain.Query
	Generator     chargedomain.Generator
	SnapshotSvc   chargedomain.Snapshot
	Workflow      chargedomain.Workflow
	SchoolYearSvc schoolyeardomain.Service
	PaymentRepo   paymentdomain.Repository
	Audit         audit.Service
}

func New(p ServerParam) *Server {
	return &Server{
		log:           p.Log.Named("server"),
		cfg:           p.Cfg,
		db:            p.DB,
		metrics:       p.Metrics,
		configSvc:     p.ConfigSvc,
		chargeQuery:   p.ChargeQuery,
		generator:     p.Generator,
		snapshotSvc:   p.SnapshotSvc,
		workflow:      p.Workflow,
		schoolYearSvc: p.SchoolYearSvc,
		paymentRepo:   p.PaymentRepo,
		audit:         p.Audit,
	}
}

func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	v1 := engine.Group("/v1")
	auth := s.requireAuth()

	v1.GET("/billing-config", s.GetBillingConfig)
	v1.PUT("/billing-config", auth, s.PutBillingConfig)
	v1.POST("/billing-config/update-prices", auth, s.UpdatePrices)
	v1.POST("/billing-config/freeze-month", auth, s.FreezeMonth)

	v1.GET("/charges", s.ListCharges)
	v1.POST("/charges/enrollment/:id/generate", s.GenerateCharges)
	v1.PATCH("/charges/:id/report", auth, s.ReportCharge)
	v1.PATCH("/charges/:id/approve", auth, s.ApproveCharge)
	v1.PATCH("/charges/:id/reject", auth, s.RejectCharge)

	v1.GET("/payment-methods", s.ListPaymentMethods)
	v1.GET("/school-years", s.ListSchoolYears)
	v1.POST("/school-years", auth, s.CreateSchoolYear)

	return engine
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTP.Addr,
		Handler: s.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RunHTTP),
)
