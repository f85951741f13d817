// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"paywall-service/internal/cache"
	"paywall-service/internal/config"
	"paywall-service/internal/db"
	adminHandler "paywall-service/internal/handlers/admin"
	blogHandler "paywall-service/internal/handlers/blog"
	checkoutHandler "paywall-service/internal/handlers/checkout"
	meHandler "paywall-service/internal/handlers/me"
	pricingHandler "paywall-service/internal/handlers/pricing"
	wsHandler "paywall-service/internal/handlers/websocket"
	"paywall-service/internal/middleware"
	"paywall-service/internal/pkg/jwt"
	"paywall-service/internal/pkg/ratelimit"
	"paywall-service/internal/pkg/razorpay"
	"paywall-service/internal/repository/postgres"
	blogsvc "paywall-service/internal/service/blog"
	entitlementsvc "paywall-service/internal/service/entitlement"
	paymentsvc "paywall-service/internal/service/payment"
	"paywall-service/internal/service/pricing"
	"paywall-service/internal/websocket"
	wsHandlers "paywall-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
	redis      redis.UniversalClient
	stopHub    context.CancelFunc
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Build connects to the backing stores and wires every component. Run may
// only be called after Build succeeds.
func (s *Server) Build(ctx context.Context) error {
	// ----- PostgreSQL -----
	if s.cfg.DBAutoMigrate {
		if err := db.MigrateUp(s.cfg.DatabaseURL); err != nil {
			return err
		}
		s.logger.Info("database migrations applied")
	}

	pool, err := db.ConnectDB(ctx, db.PostgresConfig{
		URL:      s.cfg.DatabaseURL,
		MaxConns: s.cfg.DBMaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	s.logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		ClusterMode: s.cfg.RedisCluster,
		Addresses:   s.cfg.RedisAddrs,
		Password:    s.cfg.RedisPass,
		DB:          s.cfg.RedisDB,
		PoolSize:    s.cfg.RedisPoolSize,
	})
	if err != nil {
		return err
	}
	s.redis = redisClient
	s.logger.Info("connected to Redis", zap.Strings("addrs", s.cfg.RedisAddrs))

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Pricing & Gateway -----
	pricingEngine, err := pricing.NewEngine(s.cfg.Pricing)
	if err != nil {
		return fmt.Errorf("invalid pricing configuration: %w", err)
	}
	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:         s.cfg.Razorpay.KeyID,
		KeySecret:     s.cfg.Razorpay.KeySecret,
		WebhookSecret: s.cfg.Razorpay.WebhookSecret,
	}, s.logger)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	paymentRepo := postgres.NewPaymentRepository(dbWrapper)
	entitlementRepo := postgres.NewEntitlementRepository(dbWrapper)
	blogRepo := postgres.NewBlogRepository(dbWrapper)

	// ----- Services -----
	entitlementCache := cache.NewEntitlementCache(redisClient, s.cfg.EntitlementCacheTTL)
	entitlementService := entitlementsvc.NewEntitlementService(entitlementRepo, entitlementCache, s.logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(verifier, s.logger)
	if err := hub.RegisterHandler(wsHandlers.NewEntitlementHandler(entitlementService)); err != nil {
		return err
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)

	paymentService := paymentsvc.NewPaymentService(
		paymentRepo,
		dbWrapper,
		gateway,
		entitlementService,
		pricingEngine,
		s.cfg.Currency,
		s.logger,
		paymentsvc.WithNotifier(hub),
	)
	blogService := blogsvc.NewBlogService(
		blogRepo,
		entitlementService,
		s.logger,
		blogsvc.WithPremiumThreshold(s.cfg.PremiumRatingThreshold),
	)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	checkoutLimit := middleware.RateLimit(
		ratelimit.NewRateLimiter(redisClient),
		"checkout",
		int64(s.cfg.CheckoutRateLimit),
		s.cfg.CheckoutRateWindow,
		s.logger,
	)

	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		PricingHandler:  pricingHandler.NewPricingHandler(pricingEngine, s.cfg.Currency),
		CheckoutHandler: checkoutHandler.NewCheckoutHandler(paymentService, s.logger),
		MeHandler:       meHandler.NewMeHandler(entitlementService),
		BlogHandler:     blogHandler.NewBlogHandler(blogService),
		FinanceHandler:  adminHandler.NewFinanceHandler(paymentService, entitlementService),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, s.cfg.AllowedOrigins, s.logger),
		AuthMiddleware:  authMiddleware,
		CheckoutLimit:   checkoutLimit,
		Health:          s.health,
	})

	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the hub and both stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Warn("failed to close Redis", zap.Error(cerr))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// health reports whether both stores answer.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := s.pool.Ping(ctx); err != nil {
		status["postgres"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
