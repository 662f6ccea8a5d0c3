package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/autobazaar/internal/activation"
	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	"github.com/smallbiznis/autobazaar/internal/authorization"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	"github.com/smallbiznis/autobazaar/internal/listing"
	listingdomain "github.com/smallbiznis/autobazaar/internal/listing/domain"
	"github.com/smallbiznis/autobazaar/internal/observability"
	obsmiddleware "github.com/smallbiznis/autobazaar/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/autobazaar/internal/observability/metrics"
	obstracing "github.com/smallbiznis/autobazaar/internal/observability/tracing"
	"github.com/smallbiznis/autobazaar/internal/purchase"
	"github.com/smallbiznis/autobazaar/internal/ratelimit"
	"github.com/smallbiznis/autobazaar/internal/wallet"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	catalog.Module,
	wallet.Module,
	listing.Module,
	activation.Module,
	purchase.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	authzSvc      authorization.Service
	catalogs      *catalog.Registry
	pricingAdmin  *catalog.Manager
	walletSvc     walletdomain.Service
	listingSvc    listingdomain.Service
	activationSvc activationdomain.Service
	purchaseSvc   *purchase.Service
	httpMetrics   *obsmetrics.HTTPMetrics
	obsMetrics    *obsmetrics.Metrics
	limiter       *ratelimit.PurchaseLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	AuthzSvc      authorization.Service
	Catalogs      *catalog.Registry
	PricingAdmin  *catalog.Manager
	WalletSvc     walletdomain.Service
	ListingSvc    listingdomain.Service
	ActivationSvc activationdomain.Service
	PurchaseSvc   *purchase.Service
	HTTPMetrics   *obsmetrics.HTTPMetrics    `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics        `optional:"true"`
	Limiter       *ratelimit.PurchaseLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           log.Named("http.server"),
		clock:         p.Clock,
		authzSvc:      p.AuthzSvc,
		catalogs:      p.Catalogs,
		pricingAdmin:  p.PricingAdmin,
		walletSvc:     p.WalletSvc,
		listingSvc:    p.ListingSvc,
		activationSvc: p.ActivationSvc,
		purchaseSvc:   p.PurchaseSvc,
		httpMetrics:   p.HTTPMetrics,
		obsMetrics:    p.ObsMetrics,
		limiter:       p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", Identity())

	// -------- Pricing --------
	api.GET("/vip/pricing", s.authorize(authorization.ObjectPricing, authorization.ActionPricingView), s.GetPricing)
	api.POST("/vip/pricing/refresh", s.authorize(authorization.ObjectPricing, authorization.ActionPricingRefresh), s.RefreshPricing)
	api.POST("/vip/quote", s.authorize(authorization.ObjectPricing, authorization.ActionPricingQuote), s.QuoteSelection)

	// -------- Wallet --------
	api.GET("/wallet/balance", s.authorize(authorization.ObjectWallet, authorization.ActionWalletView), s.GetBalance)
	api.GET("/wallet/entries", s.authorize(authorization.ObjectWallet, authorization.ActionWalletView), s.ListWalletEntries)
	api.POST("/wallet/top-ups", s.authorize(authorization.ObjectWallet, authorization.ActionWalletTopUp), s.TopUp)

	// -------- Listing VIP --------
	cars := api.Group("/cars/:carID")
	cars.GET("/vip", s.authorize(authorization.ObjectListing, authorization.ActionListingView), s.GetVip)
	cars.GET("/vip/state", s.authorize(authorization.ObjectListing, authorization.ActionListingView), s.GetVipState)
	cars.GET("/vip/purchases", s.authorize(authorization.ObjectListing, authorization.ActionListingView), s.ListPurchases)
	cars.POST("/vip/purchase", s.authorize(authorization.ObjectListing, authorization.ActionListingPurchase), s.PurchaseRateLimit(), s.PurchaseVip)
	cars.POST("/vip/activate", s.authorize(authorization.ObjectListing, authorization.ActionListingActivate), s.PurchaseRateLimit(), s.ActivateVip)
	cars.POST("/vip/disable", s.authorize(authorization.ObjectListing, authorization.ActionListingDisable), s.DisableVip)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", Identity())
	admin.Use(s.authorize(authorization.ObjectPricing, authorization.ActionPricingManage))

	admin.GET("/pricing", s.ListPricingEntries)
	admin.PUT("/pricing/:serviceType", s.UpsertPricingEntry)
	admin.DELETE("/pricing/:serviceType", s.DeactivatePricingEntry)
}
