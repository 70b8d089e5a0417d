// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/analytics"
	analyticsdomain "github.com/clinicore/ledger/internal/analytics/domain"
	"github.com/clinicore/ledger/internal/audit"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/clinicore/ledger/internal/closing"
	closingdomain "github.com/clinicore/ledger/internal/closing/domain"
	"github.com/clinicore/ledger/internal/config"
	"github.com/clinicore/ledger/internal/expense"
	expensedomain "github.com/clinicore/ledger/internal/expense/domain"
	"github.com/clinicore/ledger/internal/invoice"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/legacyimport"
	legacydomain "github.com/clinicore/ledger/internal/legacyimport/domain"
	"github.com/clinicore/ledger/internal/observability"
	obsmiddleware "github.com/clinicore/ledger/internal/observability/logger"
	obsmetrics "github.com/clinicore/ledger/internal/observability/metrics"
	obstracing "github.com/clinicore/ledger/internal/observability/tracing"
	"github.com/clinicore/ledger/internal/payment"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/clinicore/ledger/internal/writeoff"
	writeoffdomain "github.com/clinicore/ledger/internal/writeoff/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module assembles every ledger service behind one gin engine.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	invoice.Module,
	payment.Module,
	writeoff.Module,
	closing.Module,
	analytics.Module,
	expense.Module,
	legacyimport.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the engine with recovery, logging, tracing, and
// metrics middleware plus the health and metrics endpoints.
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
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
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

// Server carries the service handles the route handlers close over.
type Server struct {
	engine *gin.Engine
	cfg    config.Config
	genID  *snowflake.Node
	clock  clock.Clock

	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	writeOffSvc  writeoffdomain.Service
	closingSvc   closingdomain.Service
	analyticsSvc analyticsdomain.Service
	expenseSvc   expensedomain.Service
	legacySvc    legacydomain.Service
}

// ServerParams declares the server's dependencies.
type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	GenID *snowflake.Node
	Clock clock.Clock

	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	WriteOffSvc  writeoffdomain.Service
	ClosingSvc   closingdomain.Service
	AnalyticsSvc analyticsdomain.Service
	ExpenseSvc   expensedomain.Service
	LegacySvc    legacydomain.Service
}

// NewServer registers every route on the engine.
func NewServer(p ServerParams) *Server {
	s := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		genID:  p.GenID,
		clock:  p.Clock,

		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		writeOffSvc:  p.WriteOffSvc,
		closingSvc:   p.ClosingSvc,
		analyticsSvc: p.AnalyticsSvc,
		expenseSvc:   p.ExpenseSvc,
		legacySvc:    p.LegacySvc,
	}

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/invoices", s.CreateInvoice)
		v1.GET("/invoices", s.ListInvoices)
		v1.GET("/invoices/:id", s.GetInvoiceByID)
		v1.POST("/invoices/:id/cancel", s.CancelInvoice)
		v1.POST("/invoices/mark-overdue", s.MarkInvoicesOverdue)

		v1.POST("/invoices/:id/payments", s.RecordPayment)
		v1.GET("/invoices/:id/payments", s.ListInvoicePayments)

		v1.POST("/invoices/:id/write-offs", s.CreateWriteOff)
		v1.GET("/invoices/:id/write-offs", s.ListInvoiceWriteOffs)

		v1.GET("/closings/:date/summary", s.GetDailySummary)
		v1.POST("/closings/:date/close", s.CloseDay)

		v1.GET("/analytics/revenue", s.GetRevenue)
		v1.GET("/analytics/trend", s.GetMonthlyTrend)
		v1.GET("/analytics/forecast", s.GetForecast)
		v1.GET("/analytics/ar-aging", s.GetARAging)
		v1.GET("/analytics/profit-loss", s.GetProfitAndLoss)

		v1.POST("/expense-categories", s.CreateExpenseCategory)
		v1.GET("/expense-categories", s.ListExpenseCategories)
		v1.POST("/expenses", s.CreateExpense)
		v1.GET("/expenses", s.ListExpenses)

		v1.POST("/legacy/import", s.ImportLegacyData)
	}

	return s
}
