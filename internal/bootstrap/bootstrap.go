package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	appAuth "github.com/yigit/coursemarket/internal/app/auth"
	appControllers "github.com/yigit/coursemarket/internal/app/controllers"
	appMigrations "github.com/yigit/coursemarket/internal/app/migrations"
	appRepos "github.com/yigit/coursemarket/internal/app/repositories"
	cachedRepos "github.com/yigit/coursemarket/internal/app/repositories/cached"
	memoryRepos "github.com/yigit/coursemarket/internal/app/repositories/memory"
	mongoRepos "github.com/yigit/coursemarket/internal/app/repositories/mongo"
	postgresRepos "github.com/yigit/coursemarket/internal/app/repositories/postgres"
	appRoutes "github.com/yigit/coursemarket/internal/app/routes"
	appServices "github.com/yigit/coursemarket/internal/app/services"
	"github.com/yigit/coursemarket/internal/config"
	"github.com/yigit/coursemarket/internal/db"
	appMiddleware "github.com/yigit/coursemarket/internal/middleware"
	pkgAuth "github.com/yigit/coursemarket/internal/pkg/auth"
	"github.com/yigit/coursemarket/internal/pkg/email"
	"github.com/yigit/coursemarket/internal/pkg/events"
	"github.com/yigit/coursemarket/internal/pkg/filestorage"
	"github.com/yigit/coursemarket/internal/pkg/helpers"
	"github.com/yigit/coursemarket/internal/pkg/logger"
	"github.com/yigit/coursemarket/internal/pkg/websocket"
	"github.com/yigit/coursemarket/internal/seed"
)

// DefaultConfigPath is where LoadConfigAndSetupLogger looks for the config file
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Storage is the opened storage backend and the repositories over it
type Storage struct {
	Driver   string
	Repos    *appRepos.Repositories
	Postgres *db.PostgresDB
	Mongo    *db.MongoDB
}

// Close releases the backend connections
func (s *Storage) Close(ctx context.Context) error {
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.Mongo != nil {
		return s.Mongo.Close(ctx)
	}
	return nil
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config  *config.Config
	Storage *Storage
	Repos   *appRepos.Repositories
	Redis   *redis.Client

	JWTService  *pkgAuth.JWTService
	DenyList    pkgAuth.DenyList
	Mailer      email.Mailer
	FileStorage *filestorage.LocalStorage
	Bus         *events.Bus
	Hub         *websocket.Hub

	AuthService        *appServices.AuthService
	CourseService      *appServices.CourseService
	EnrollmentService  *appServices.EnrollmentService
	AchievementService *appServices.AchievementService
	UserService        appServices.UserService
	AuthzService       *appAuth.AuthorizationService

	AuthController      *appControllers.AuthController
	CourseController    *appControllers.CourseController
	UserController      *appControllers.UserController
	NotificationHandler *websocket.Handler
	AuthMiddleware      *appMiddleware.AuthMiddleware
	RateLimiter         *appMiddleware.RateLimiter

	Logger zerolog.Logger

	cancel context.CancelFunc
}

// Option overrides a dependency built by BuildDependencies
type Option func(*Dependencies)

// WithMailer replaces the configured mailer
func WithMailer(m email.Mailer) Option {
	return func(d *Dependencies) { d.Mailer = m }
}

// WithBus replaces the configured event bus
func WithBus(b *events.Bus) Option {
	return func(d *Dependencies) { d.Bus = b }
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured backend, applies its schema and seeds
// demo data when enabled.
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	storage := &Storage{Driver: cfg.Database.Driver}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		lgr.Info().Msg("Establishing PostgreSQL connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		storage.Postgres = database

		lgr.Info().Msg("Running database migrations...")
		if err := appMigrations.NewMigrator(database.Pool, lgr).Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		storage.Repos = postgresRepos.NewRepositories(database.Pool)

	case config.DriverMongo:
		lgr.Info().Msg("Establishing MongoDB connection...")
		database, err := db.NewMongoDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		storage.Mongo = database

		if err := mongoRepos.EnsureIndexes(ctx, database.Database); err != nil {
			_ = database.Close(context.Background())
			return nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
		}
		storage.Repos = mongoRepos.NewRepositories(database.Database)

	case config.DriverMemory:
		lgr.Warn().Msg("Using in-memory storage, data is lost on restart")
		storage.Repos = memoryRepos.NewRepositories(memoryRepos.Open())

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	lgr.Info().Str("driver", storage.Driver).Msg("Storage ready")

	if cfg.Database.SeedDemoData {
		if err := seed.CreateDemoData(ctx, storage.Repos, lgr); err != nil {
			// Startup continues without demo data
			lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
		}
	}

	return storage, nil
}

// BuildDependencies initializes application services, controllers and middleware.
// redisClient may be nil, in which case the deny-list is kept in memory and
// course reads are not cached.
func BuildDependencies(cfg *config.Config, storage *Storage, redisClient *redis.Client, lgr zerolog.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Storage: storage,
		Redis:   redisClient,
		Logger:  lgr,
	}
	for _, opt := range opts {
		opt(deps)
	}

	deps.Repos = &appRepos.Repositories{
		Users: storage.Repos.Users,
		Courses: cachedRepos.NewCourseRepository(
			storage.Repos.Courses,
			redisClient,
			helpers.ParseDuration(cfg.Redis.CourseCacheTTL, 5*time.Minute),
		),
	}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, strings.TrimRight(cfg.Server.PublicBaseURL, "/")+"/uploads")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	if redisClient != nil {
		deps.DenyList = pkgAuth.NewRedisDenyList(redisClient)
	} else {
		deps.DenyList = pkgAuth.NewMemoryDenyList()
	}

	if deps.Mailer == nil {
		deps.Mailer = email.New(cfg, logger.Component("mail"))
	}

	if deps.Bus == nil {
		deps.Bus, err = events.NewBus(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
	}
	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, pkgAuth.DefaultTokenLifetime),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	// Initialize services
	deps.AuthService = appServices.NewAuthService(
		deps.Repos.Users,
		deps.JWTService,
		deps.DenyList,
		deps.Mailer,
		helpers.ParseDuration(cfg.PasswordReset.CodeTTL, appServices.DefaultResetCodeTTL),
		logger.Component("auth"),
	)
	deps.CourseService = appServices.NewCourseService(deps.Repos.Courses, deps.Repos.Users, deps.FileStorage, logger.Component("courses"))
	deps.EnrollmentService = appServices.NewEnrollmentService(deps.Repos.Users, deps.Repos.Courses, deps.Bus, logger.Component("enrollment"))
	deps.AchievementService = appServices.NewAchievementService(deps.Repos.Users, deps.Hub, logger.Component("achievements"))
	deps.AchievementService.Register(deps.Bus)
	deps.UserService = appServices.NewUserService(deps.Repos.Users, logger.Component("users"))
	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.Courses, logger.Component("authz"))

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AuthService, deps.AuthzService)
	deps.RateLimiter = appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, logger.Component("auth"))
	deps.CourseController = appControllers.NewCourseController(deps.CourseService, deps.EnrollmentService, logger.Component("courses"))
	deps.UserController = appControllers.NewUserController(deps.UserService, deps.CourseService)
	deps.NotificationHandler = websocket.NewHandler(deps.Hub, cfg.CORSOrigins(), logger.Component("websocket"))

	return deps, nil
}

// Start runs the event bus and the notification hub in the background and
// waits until every event handler is subscribed.
func (d *Dependencies) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	go d.Hub.Run()

	busErr := make(chan error, 1)
	go func() {
		if err := d.Bus.Run(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("Event bus stopped with error")
			busErr <- err
		}
	}()

	select {
	case <-d.Bus.Running():
		d.Logger.Info().Msg("Event bus running")
		return nil
	case err := <-busErr:
		return fmt.Errorf("failed to start event bus: %w", err)
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for event bus")
	}
}

// Close stops background workers and releases every connection
func (d *Dependencies) Close(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	d.Hub.Stop()

	var firstErr error
	if err := d.Bus.Close(); err != nil {
		d.Logger.Error().Err(err).Msg("Failed to close event bus")
		firstErr = err
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.Storage != nil {
		if err := d.Storage.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies()); err != nil {
		lgr.Warn().Err(err).Msg("Ignoring trusted proxies, forwarded headers will not be honored")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(logger.Component("http")))
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.CourseController,
		deps.UserController,
		deps.NotificationHandler,
		deps.AuthMiddleware,
		deps.RateLimiter,
	)

	// Uploaded thumbnails
	router.Static("/uploads", deps.FileStorage.BasePath())
	lgr.Info().Str("path", deps.FileStorage.BasePath()).Msg("Static file serving configured for uploads directory")

	return router
}
