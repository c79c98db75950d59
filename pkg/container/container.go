package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"loyalty-backend/internal/config"
	"loyalty-backend/internal/domains/audit"
	auditRepo "loyalty-backend/internal/domains/audit/repository"
	authHandler "loyalty-backend/internal/domains/auth/handler"
	authRepo "loyalty-backend/internal/domains/auth/repository"
	authService "loyalty-backend/internal/domains/auth/service"
	customerHandler "loyalty-backend/internal/domains/customer/handler"
	customerRepo "loyalty-backend/internal/domains/customer/repository"
	customerService "loyalty-backend/internal/domains/customer/service"
	templateHandler "loyalty-backend/internal/domains/template/handler"
	templateRepo "loyalty-backend/internal/domains/template/repository"
	templateService "loyalty-backend/internal/domains/template/service"
	visitHandler "loyalty-backend/internal/domains/visit/handler"
	visitRepo "loyalty-backend/internal/domains/visit/repository"
	visitService "loyalty-backend/internal/domains/visit/service"
	voucherHandler "loyalty-backend/internal/domains/voucher/handler"
	voucherRepo "loyalty-backend/internal/domains/voucher/repository"
	voucherService "loyalty-backend/internal/domains/voucher/service"
	"loyalty-backend/internal/infrastructure/cache"
	"loyalty-backend/internal/infrastructure/database"
	"loyalty-backend/pkg/jwt"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa toàn bộ dependency graph của application.
// Tất cả đều singleton, sống suốt app lifetime.
type Container struct {
	// Infrastructure
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       *cache.RedisClient
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	AuditSink   audit.Sink

	// Repositories
	VoucherRepo  voucherRepo.VoucherRepository
	TemplateRepo templateRepo.TemplateRepository
	CustomerRepo customerRepo.CustomerRepository
	VisitRepo    visitRepo.VisitRepository
	StaffRepo    authRepo.StaffRepository
	AuditRepo    auditRepo.AuditRepository

	// Services
	VoucherService  voucherService.ServiceInterface
	TemplateService templateService.ServiceInterface
	CustomerService customerService.ServiceInterface
	VisitService    visitService.ServiceInterface
	AuthService     authService.ServiceInterface

	// Handlers
	VoucherHandler  *voucherHandler.VoucherHandler
	TemplateHandler *templateHandler.TemplateHandler
	CustomerHandler *customerHandler.CustomerHandler
	VisitHandler    *visitHandler.VisitHandler
	AuthHandler     *authHandler.AuthHandler
}

// NewContainer khởi tạo dependency graph theo thứ tự:
// config → infrastructure → repositories → services → handlers.
func NewContainer() (*Container, error) {
	log.Println("🔧 Initializing DI Container...")

	c := &Container{}

	// STEP 1: CONFIG
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("✅ Config loaded (Environment: %s)", cfg.App.Environment)

	// STEP 2: DATABASE
	db := database.NewPostgresDB(&cfg.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("✅ Database connected")

	// STEP 3: REDIS
	redisClient := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Connect(context.Background()); err != nil {
		// Redis chỉ phục vụ cache + queue enqueue; API vẫn chạy được khi
		// Redis down, nên chỉ warn
		log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
	} else {
		log.Println("✅ Redis connected")
	}
	c.Cache = redisClient

	// STEP 4: JWT + ASYNQ
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.AuditSink = audit.NewAsynqSink(c.AsynqClient)

	// STEP 5: REPOSITORIES
	c.initRepositories()

	// STEP 6: SERVICES
	c.initServices()

	// STEP 7: HANDLERS
	c.initHandlers()

	log.Println("🎉 DI Container initialized successfully")
	return c, nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.VoucherRepo = voucherRepo.NewPostgresVoucherRepository(pool)
	c.TemplateRepo = templateRepo.NewPostgresTemplateRepository(pool)
	c.CustomerRepo = customerRepo.NewPostgresCustomerRepository(pool)
	c.VisitRepo = visitRepo.NewPostgresVisitRepository(pool)
	c.StaffRepo = authRepo.NewPostgresStaffRepository(pool)
	c.AuditRepo = auditRepo.NewPostgresAuditRepository(pool)
}

func (c *Container) initServices() {
	c.TemplateService = templateService.NewTemplateService(c.TemplateRepo, c.Cache)

	c.VoucherService = voucherService.NewVoucherService(
		c.VoucherRepo,
		c.TemplateRepo,
		c.AuditSink,
		c.Config.Loyalty.VoucherExpiryDays,
	)

	c.CustomerService = customerService.NewCustomerService(c.CustomerRepo, c.AuditSink)

	c.VisitService = visitService.NewVisitService(
		c.VisitRepo,
		c.CustomerRepo,
		c.VoucherRepo,
		c.TemplateRepo,
		c.AuditSink,
		c.Config.Loyalty.StampCardSize,
		c.Config.Loyalty.VoucherExpiryDays,
	)

	c.AuthService = authService.NewAuthService(c.StaffRepo, c.JWTManager, c.AuditSink)
}

func (c *Container) initHandlers() {
	c.VoucherHandler = voucherHandler.NewVoucherHandler(c.VoucherService)
	c.TemplateHandler = templateHandler.NewTemplateHandler(c.TemplateService)
	c.CustomerHandler = customerHandler.NewCustomerHandler(c.CustomerService)
	c.VisitHandler = visitHandler.NewVisitHandler(c.VisitService)
	c.AuthHandler = authHandler.NewAuthHandler(c.AuthService)
}

// Close giải phóng connection theo thứ tự ngược với khởi tạo
func (c *Container) Close() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("⚠️  Error closing asynq client: %v", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Printf("⚠️  Error closing redis: %v", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Println("👋 Container closed")
}
