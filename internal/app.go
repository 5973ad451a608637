// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	router "wallet-ledger/internal/api"
	"wallet-ledger/internal/api/handler"
	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/cache"
	"wallet-ledger/internal/catalog"
	"wallet-ledger/internal/config"
	"wallet-ledger/internal/gateway"
	"wallet-ledger/internal/idempotency"
	"wallet-ledger/internal/idgen"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/repository/memory"
	"wallet-ledger/internal/repository/postgres"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	// Storage
	Executor repository.DBExecutor
	Tx       db.TxFuncs

	// Repositories
	AccountRepository     repository.AccountRepository
	TransactionRepository repository.TransactionRepository
	OrderRepository       repository.OrderRepository
	ProductRepository     repository.ProductRepository

	// Services
	WalletService service.WalletService
	OrderService  service.OrderService
	Reconciler    *service.Reconciler

	// HTTP API
	HTTPHandler http.Handler

	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "store", cfg.StoreDriver, "gateway", cfg.Gateway.Provider)

	// 3. Open the store and its repositories
	if err := app.initStore(ctx); err != nil {
		return err
	}
	app.Logger.Info("Repositories initialized.")

	// 4. Payment gateway
	verifier, err := app.newVerifier()
	if err != nil {
		return err
	}

	// 5. Redis backed catalog cache and idempotency store
	var idem router.Idempotency
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.Redis = client
		idem = router.Idempotency{Store: idempotency.NewRedisStore(client), TTL: cfg.IdempotencyTTL}
		app.Logger.Info("Redis connection established.", "addr", cfg.Redis.Addr)
	}

	var cat catalog.Catalog
	if cfg.Catalog.Snapshot {
		var base catalog.Catalog = catalog.NewRepositoryCatalog(app.ProductRepository, app.Executor)
		if app.Redis != nil {
			base = catalog.NewCachedCatalog(base, cache.NewRedisCache(app.Redis, "wallet-ledger:"), cfg.Catalog.CacheTTL, app.Logger)
		}
		cat = base
	}

	// 6. Initialize Services
	app.WalletService = service.NewWalletService(
		app.Executor,
		app.AccountRepository,
		app.TransactionRepository,
		app.Tx,
		verifier,
		app.Logger,
	)
	ids := idgen.New(service.NewOrderIDSource(app.OrderRepository, app.Executor), app.Logger)
	app.OrderService = service.NewOrderService(
		app.Executor,
		app.OrderRepository,
		app.TransactionRepository,
		app.WalletService,
		ids,
		verifier,
		cat,
		app.Tx,
		app.Logger,
	)
	app.Reconciler = service.NewReconciler(app.WalletService, app.TransactionRepository, app.Executor, cfg.Reconcile.After, app.Logger)
	app.Logger.Info("Services initialized.")

	// 7. Background reconciliation of partial commits
	bgCtx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel
	app.background.Add(1)
	go func() {
		defer app.background.Done()
		app.Reconciler.Run(bgCtx, cfg.Reconcile.Interval)
	}()

	// 8. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	orderHandler := handler.NewOrderHandler(app.OrderService, app.Logger)
	provider := auth.NewJWTProvider(cfg.Auth.JWTSecret, app.WalletService)
	app.HTTPHandler = router.NewRouter(walletHandler, orderHandler, provider, idem, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

func (app *Application) initStore(ctx context.Context) error {
	switch app.Config.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		app.Executor = store
		app.Tx = store.TxFuncs()
		app.AccountRepository = memory.NewAccountRepository(store)
		app.TransactionRepository = memory.NewTransactionRepository(store)
		app.OrderRepository = memory.NewOrderRepository(store)
		app.ProductRepository = memory.NewProductRepository(store)
		app.Logger.Warn("Using the in-memory store, data is lost on restart.")
		return nil
	default:
		database, err := db.NewPostgresDB(ctx, app.Config.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		app.Logger.Info("Database connection established.")

		if err := postgres.Migrate(ctx, database); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.Executor = database
		app.Tx = db.SQLTxFuncs(database)
		app.AccountRepository = postgres.NewAccountRepository()
		app.TransactionRepository = postgres.NewTransactionRepository()
		app.OrderRepository = postgres.NewOrderRepository()
		app.ProductRepository = postgres.NewProductRepository()
		return nil
	}
}

func (app *Application) newVerifier() (gateway.Verifier, error) {
	switch app.Config.Gateway.Provider {
	case config.GatewayProviderStripe:
		return gateway.NewStripeVerifier(app.Config.Gateway.StripeSecretKey), nil
	case config.GatewayProviderHMAC:
		return gateway.NewHMACVerifier(app.Config.Gateway.Secret), nil
	}
	return nil, fmt.Errorf("unsupported payment gateway %q", app.Config.Gateway.Provider)
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.stopBackground != nil {
		app.stopBackground()
		app.background.Wait()
		app.Logger.Info("Reconciler stopped.")
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close redis connection", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
