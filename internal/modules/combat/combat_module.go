package combat

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	custommiddleware "tsu-tactics/internal/middleware"
	authclient "tsu-tactics/internal/modules/auth/client"
	"tsu-tactics/internal/modules/combat/handler"
	"tsu-tactics/internal/modules/combat/service"
	"tsu-tactics/internal/modules/combat/tasks"
	"tsu-tactics/internal/pkg/config"
	"tsu-tactics/internal/pkg/idempotency"
	"tsu-tactics/internal/pkg/log"
	"tsu-tactics/internal/pkg/metrics"
	"tsu-tactics/internal/pkg/notify"
	redisClient "tsu-tactics/internal/pkg/redis"
	"tsu-tactics/internal/pkg/response"
	"tsu-tactics/internal/pkg/sessioncache"
	"tsu-tactics/internal/pkg/validator"

	_ "tsu-tactics/docs/combat" // Swagger 生成的文档

	"github.com/labstack/echo/v4"
	"github.com/liangdas/mqant/conf"
	"github.com/liangdas/mqant/module"
	basemodule "github.com/liangdas/mqant/module/base"
	"github.com/liangdas/mqant/server"
	_ "github.com/lib/pq"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// HealthReporter 外部依赖的健康状态（NATS）
type HealthReporter interface {
	IsHealthy() bool
}

type CombatModule struct {
	basemodule.BaseModule
	cfg              *config.CombatConfig
	db               *sql.DB
	redis            *redisClient.Client
	ketoClient       *authclient.KetoClient
	httpServer       *echo.Echo
	serviceContainer *service.ServiceContainer
	combatHandler    *handler.CombatHandler
	combatRPCHandler *handler.CombatRPCHandler
	idleSessionTask  *tasks.IdleSessionTask
	archiveTask      *tasks.ArchiveTask
	natsHealth       HealthReporter
	respWriter       response.Writer
	logger           log.Logger
}

// GetType returns module type
func (m *CombatModule) GetType() string {
	return "combat"
}

// Version returns module version
func (m *CombatModule) Version() string {
	return "1.0.0"
}

// OnAppConfigurationLoaded 当App初始化时调用
func (m *CombatModule) OnAppConfigurationLoaded(app module.App) {
	m.BaseModule.OnAppConfigurationLoaded(app)
}

// OnInit module initialization
func (m *CombatModule) OnInit(app module.App, settings *conf.ModuleSettings) {
	metrics.SetServiceName("combat")
	m.BaseModule.OnInit(m, app, settings,
		server.RegisterInterval(15*time.Second),
		server.RegisterTTL(30*time.Second),
	)

	// 1. Load configuration
	cfg, err := config.LoadCombatConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load combat config: %v", err))
	}
	m.cfg = cfg
	log.Init(log.ParseLevel(cfg.LogLevel), cfg.Environment)
	m.logger = log.GetLogger()
	m.logger.Info("【战斗模块】配置加载完成", "config", cfg.LogFields())

	// 2. Initialize database connection
	if err := m.initDatabase(); err != nil {
		panic(fmt.Sprintf("Failed to initialize database: %v", err))
	}

	// 3. Initialize Redis (rate limit / idempotency)
	if err := m.initRedis(); err != nil {
		panic(fmt.Sprintf("Failed to initialize Redis: %v", err))
	}

	// 4. Initialize Keto client (optional, campaign membership)
	m.initKetoClient()

	// 5. Initialize response writer
	m.respWriter = response.NewResponseHandler(m.logger, cfg.Environment)

	// 6. Initialize HTTP server
	m.initHTTPServer()

	// 7. Initialize Services and Handlers
	m.initServicesAndHandlers()

	// 8. Setup routes
	m.setupRoutes()

	// 9. Setup RPC methods
	m.setupRPCMethods()

	// 10. Start cron tasks
	if cfg.CronEnabled {
		m.startCronTasks()
	} else {
		fmt.Println("[Combat Module] Cron tasks disabled")
	}

	// 11. Start HTTP server in background
	go m.startHTTPServer()

	m.GetServer().Options()
}

// initDatabase initializes database connection
func (m *CombatModule) initDatabase() error {
	db, err := sql.Open("postgres", m.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(m.cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(m.cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(m.cfg.DBConnLifetime)

	m.db = db
	fmt.Println("[Combat Module] Database initialized successfully")

	// 启动数据库连接池监控
	go m.startDBPoolMonitoring(db)

	return nil
}

// initRedis initializes Redis client
func (m *CombatModule) initRedis() error {
	client, err := redisClient.NewClient(redisClient.Config{
		Host:     m.cfg.RedisHost,
		Port:     m.cfg.RedisPort,
		Password: m.cfg.RedisPassword,
		DB:       m.cfg.RedisDB,
	}, metrics.GetServiceName())
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.redis = client
	fmt.Printf("[Combat Module] Redis connected successfully (Host: %s:%d, DB: %d)\n", m.cfg.RedisHost, m.cfg.RedisPort, m.cfg.RedisDB)
	return nil
}

// initKetoClient Keto 是可选的，没有配置时成员校验走数据库
func (m *CombatModule) initKetoClient() {
	if m.cfg.KetoReadURL == "" {
		fmt.Println("[Combat Module] Keto URL not configured, campaign access will use database fallback")
		return
	}

	ketoClient, err := authclient.NewKetoClient(m.cfg.KetoReadURL)
	if err != nil {
		fmt.Printf("[Combat Module] Failed to initialize Keto client: %v, will use database fallback\n", err)
		return
	}

	m.ketoClient = ketoClient
	fmt.Printf("[Combat Module] Keto client initialized (read: %s)\n", m.cfg.KetoReadURL)
}

// initHTTPServer initializes HTTP server
func (m *CombatModule) initHTTPServer() {
	m.httpServer = echo.New()
	m.httpServer.HideBanner = true
	m.httpServer.HidePort = true
	m.httpServer.Validator = validator.New()

	custommiddleware.SetupGlobal(m.httpServer, custommiddleware.Config{
		Logger:      m.logger,
		RespWriter:  m.respWriter,
		BodyLimit:   "1M",
		Development: !m.cfg.IsProduction(),
		CORSOrigins: m.cfg.CORSAllowOrigins,
	})

	fmt.Println("[Combat Module] HTTP middlewares configured:")
	fmt.Println("  ✓ TraceID (自动生成追踪ID)")
	fmt.Println("  ✓ i18n (国际化支持)")
	fmt.Println("  ✓ Recovery (Panic 恢复)")
	fmt.Printf("  ✓ Logging (日志记录 - %s)\n", m.cfg.Environment)
	fmt.Println("  ✓ Metrics (Prometheus 指标收集)")
	fmt.Println("  ✓ CORS / Security Headers")
	fmt.Println("  ✓ Error (统一错误处理)")
}

// initServicesAndHandlers initializes services and HTTP handlers
func (m *CombatModule) initServicesAndHandlers() {
	var publisher notify.Publisher = notify.NatsPublisher{}
	if !m.cfg.NotifyEnabled {
		publisher = notify.NopPublisher{}
	}

	m.serviceContainer = service.NewServiceContainer(m.db, publisher, m.logger)
	m.combatHandler = handler.NewCombatHandler(m.serviceContainer.CombatService, m.respWriter)
	m.combatRPCHandler = handler.NewCombatRPCHandler(m.serviceContainer.CombatService)

	fmt.Println("[Combat Module] Handlers initialized successfully")
}

// startCronTasks starts cron scheduled tasks
func (m *CombatModule) startCronTasks() {
	m.idleSessionTask = tasks.NewIdleSessionTask(m.serviceContainer.CombatService, m.cfg.IdleTimeout, m.logger)
	m.idleSessionTask.Start()

	m.archiveTask = tasks.NewArchiveTask(m.serviceContainer.CombatService, m.cfg.ArchiveRetention, m.logger)
	m.archiveTask.Start()

	fmt.Println("[Combat Module] Cron tasks started successfully:")
	fmt.Println("  ✓ Idle Session Task (每10分钟)")
	fmt.Println("  ✓ Active Gauge Refresh (每分钟)")
	fmt.Println("  ✓ Archive Task (每天凌晨3点)")
}

// setupRoutes sets up HTTP routes
func (m *CombatModule) setupRoutes() {
	v1 := m.httpServer.Group("/api/v1")

	// 认证 -> UUID 校验 -> 战役成员 -> 限流，写请求再叠加幂等
	kratos := authclient.NewKratosClient(m.cfg.KratosPublicURL)
	authCache := sessioncache.New(m.cfg.AuthCacheTTL, metrics.DefaultAuthMetrics, m.logger)

	var keto custommiddleware.CampaignAccessChecker
	if m.ketoClient != nil {
		keto = m.ketoClient
	}
	campaignAccess := custommiddleware.NewCampaignAccessMiddleware(keto, m.serviceContainer.CampaignRepository(), m.respWriter, m.logger)

	limiter := custommiddleware.NewRedisRateLimiterStore(m.redis, m.cfg.RateLimitRequests, m.cfg.RateLimitWindow, m.logger)
	idem := custommiddleware.IdempotencyMiddleware(custommiddleware.IdempotencyConfig{
		Store:   idempotency.NewRedisStore(m.redis),
		TTL:     m.cfg.IdempotencyTTL,
		LockTTL: m.cfg.IdempotencyLock,
	}, m.respWriter, m.logger)

	sessions := v1.Group("/combat/campaigns/:campaign_id/sessions")
	sessions.Use(custommiddleware.AuthMiddleware(kratos, authCache, m.respWriter, m.logger))
	sessions.Use(custommiddleware.UUIDValidationMiddleware(m.respWriter))
	sessions.Use(custommiddleware.RequestContextMiddleware())
	sessions.Use(campaignAccess.RequireCampaignMember)
	sessions.Use(custommiddleware.RateLimitMiddleware(limiter, m.respWriter))
	{
		sessions.POST("", m.combatHandler.StartCombat, idem)                    // 开始战斗
		sessions.GET("/:session_id", m.combatHandler.GetState)                  // 查询状态
		sessions.GET("/:session_id/events", m.combatHandler.ListEvents)         // 事件分页
		sessions.POST("/:session_id/tick", m.combatHandler.Tick, idem)          // 推进 NPC 回合
		sessions.POST("/:session_id/use-skill", m.combatHandler.UseSkill, idem) // 施放技能
	}

	// Swagger UI
	m.httpServer.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health check
	m.httpServer.GET("/health", m.health)

	// Prometheus metrics endpoint
	m.httpServer.GET("/metrics", metrics.EchoHandler())

	fmt.Println("[Combat Module] Routes configured successfully")
	fmt.Println("[Combat Module] Combat API routes: /api/v1/combat/campaigns/:campaign_id/sessions/*")
	fmt.Printf("[Combat Module] Swagger UI available at http://localhost:%s/swagger/index.html\n", m.cfg.HTTPPort)
}

// health 数据库不可用时返回 503，NATS 只上报状态
func (m *CombatModule) health(c echo.Context) error {
	status := map[string]interface{}{
		"status": "ok",
		"module": "combat",
	}
	if m.natsHealth != nil {
		status["nats"] = m.natsHealth.IsHealthy()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := m.db.PingContext(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// startHTTPServer starts HTTP server
func (m *CombatModule) startHTTPServer() {
	fmt.Printf("[Combat Module] Starting HTTP server on port %s\n", m.cfg.HTTPPort)

	if err := m.httpServer.Start(":" + m.cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
		fmt.Printf("[Combat Module] HTTP server error: %v\n", err)
	}
}

// setupRPCMethods 注册 RPC 方法，供叙事、战役管理等模块调用
func (m *CombatModule) setupRPCMethods() {
	m.GetServer().RegisterGO("GetCombatState", m.combatRPCHandler.GetCombatState)

	fmt.Println("[Combat Module] RPC methods registered:")
	fmt.Println("  ✓ GetCombatState - 获取战斗会话状态")
}

// Run module run
func (m *CombatModule) Run(closeSig chan bool) {
	fmt.Println("[Combat Module] Started successfully")
	<-closeSig
}

// OnDestroy module destroy
func (m *CombatModule) OnDestroy() {
	if m.idleSessionTask != nil {
		m.idleSessionTask.Stop()
	}
	if m.archiveTask != nil {
		m.archiveTask.Stop()
	}
	fmt.Println("[Combat Module] Cron tasks stopped")

	if m.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.httpServer.Shutdown(ctx); err != nil {
			fmt.Printf("[Combat Module] Failed to close HTTP server: %v\n", err)
		} else {
			fmt.Println("[Combat Module] HTTP server closed")
		}
	}

	if m.ketoClient != nil {
		if err := m.ketoClient.Close(); err != nil {
			fmt.Printf("[Combat Module] Failed to close Keto client: %v\n", err)
		}
	}

	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			fmt.Printf("[Combat Module] Failed to close Redis: %v\n", err)
		}
	}

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			fmt.Printf("[Combat Module] Failed to close database: %v\n", err)
		} else {
			fmt.Println("[Combat Module] Database connection closed")
		}
	}

	m.BaseModule.OnDestroy()
	fmt.Println("[Combat Module] Destroyed")
}

// Module creates Combat module instance
// natsHealth 可为 nil
func Module(natsHealth HealthReporter) module.Module {
	return &CombatModule{natsHealth: natsHealth}
}

// startDBPoolMonitoring 启动数据库连接池监控
// 每 30 秒报告一次连接池统计信息到 Prometheus
func (m *CombatModule) startDBPoolMonitoring(db *sql.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := db.Stats()
		metrics.DefaultResourceMetrics.RecordDBPoolStats(
			metrics.GetServiceName(),
			"postgres",
			stats.OpenConnections,
			stats.InUse,
			stats.Idle,
			m.cfg.DBMaxOpenConns,
			stats.WaitCount,
			stats.WaitDuration,
		)
	}
}
