package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/billdesk/internal/config"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/internal/invoice/render"
	"github.com/smallbiznis/billdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/billdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/billdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/billdesk/internal/observability/tracing"
	"github.com/smallbiznis/billdesk/internal/ratelimit"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine     *gin.Engine
	invoiceSvc invoicedomain.Service
	taxSvc     taxdomain.Service
	renderer   render.Renderer
	limiter    *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	InvoiceSvc invoicedomain.Service
	TaxSvc     taxdomain.Service
	Renderer   render.Renderer
	Limiter    *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		invoiceSvc: p.InvoiceSvc,
		taxSvc:     p.TaxSvc,
		renderer:   p.Renderer,
		limiter:    p.Limiter,
	}
	svc.registerAPIRoutes()
	svc.registerFallback()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	ws := s.engine.Group("/v1/workspaces/:workspace_id", writeRateLimit(s.limiter))

	// -------- Invoices --------
	ws.GET("/invoices", s.ListInvoices)
	ws.POST("/invoices", s.CreateInvoice)
	ws.GET("/invoices/:id", s.GetInvoiceByID)
	ws.PUT("/invoices/:id", s.UpdateInvoice)
	ws.DELETE("/invoices/:id", s.DeleteInvoice)
	ws.POST("/invoices/:id/pay", s.MarkInvoicePaid)
	ws.GET("/invoices/:id/summary", s.GetInvoiceSummary)
	ws.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)

	// -------- Taxes --------
	ws.GET("/taxes", s.ListTaxes)
	ws.POST("/taxes", s.CreateTax)
	ws.GET("/taxes/:id", s.GetTax)
	ws.PATCH("/taxes/:id", s.UpdateTax)
	ws.DELETE("/taxes/:id", s.DeleteTax)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
