package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/reflect-backend/internal/config"
	"github.com/AnshRaj112/reflect-backend/internal/database"
	"github.com/AnshRaj112/reflect-backend/internal/handlers"
	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/metrics"
	"github.com/AnshRaj112/reflect-backend/internal/middleware"
	"github.com/AnshRaj112/reflect-backend/internal/routes"
	"github.com/AnshRaj112/reflect-backend/internal/services"
	"github.com/AnshRaj112/reflect-backend/internal/store"
	"github.com/AnshRaj112/reflect-backend/internal/store/memory"
	"github.com/AnshRaj112/reflect-backend/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found")
	}

	root := &cobra.Command{
		Use:          "reflect",
		Short:        "Mood-tagged journaling backend",
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error { return serve(config.Load()) },
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  func(cmd *cobra.Command, args []string) error { return serve(config.Load()) },
		},
		&cobra.Command{
			Use:   "init-db",
			Short: "Create the PostgreSQL tables and exit",
			RunE:  func(cmd *cobra.Command, args []string) error { return initDB(config.Load()) },
		},
	)

	if err := root.Execute(); err != nil {
		logger.Log.WithError(err).Fatal("reflect exited")
	}
}

func initDB(cfg *config.Config) error {
	logger.Init(cfg.Environment)
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	defer database.DisconnectPostgres()
	return database.InitPostgresTables(database.PostgresDB)
}

// storeSet is the repository bundle the services run on.
type storeSet struct {
	users       services.UserStore
	entries     services.EntryStore
	drafts      services.DraftStore
	collections services.CollectionStore
}

func openStores(cfg *config.Config) (storeSet, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Log.Warn("⚠️  STORE_BACKEND=memory: data is lost on restart")
		m := memory.New()
		return storeSet{m.Users(), m.Entries(), m.Drafts(), m.Collections()}, func() {}, nil
	}

	var sealer *utils.Sealer
	if cfg.EncryptionKey == "" {
		logger.Log.Warn("⚠️  ENCRYPTION_KEY not set. Entry content is stored in plaintext (generate one with: openssl rand -base64 32)")
	} else {
		s, err := utils.NewSealer(cfg.EncryptionKey)
		if err != nil {
			return storeSet{}, nil, errors.Wrap(err, "ENCRYPTION_KEY")
		}
		sealer = s
		logger.Log.Info("✅ Encryption key configured")
	}

	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return storeSet{}, nil, errors.Wrap(err, "connect postgres")
	}
	if err := database.InitPostgresTables(database.PostgresDB); err != nil {
		database.DisconnectPostgres()
		return storeSet{}, nil, errors.Wrap(err, "init postgres tables")
	}
	db := database.PostgresDB
	return storeSet{
		users:       store.NewUserRepo(db),
		entries:     store.NewEntryRepo(db, sealer),
		drafts:      store.NewDraftRepo(db, sealer),
		collections: store.NewCollectionRepo(db),
	}, func() { database.DisconnectPostgres() }, nil
}

func newVerifier(cfg *config.Config) (*services.IdentityVerifier, error) {
	if cfg.IdentityJWKSURL != "" {
		return services.NewJWKSVerifier(cfg.IdentityJWKSURL, cfg.IdentityIssuer)
	}
	if cfg.IsProduction() {
		return nil, errors.New("IDENTITY_JWKS_URL is required in production")
	}
	logger.Log.Warn("⚠️  IDENTITY_JWKS_URL not set. Verifying session tokens with IDENTITY_SIGNING_SECRET")
	return services.NewHMACVerifier(cfg.IdentitySigningSecret, cfg.IdentityIssuer), nil
}

func serve(cfg *config.Config) error {
	logger.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	defer verifier.Close()

	images := services.NewImageSearch(cfg.PixabayBaseURL, cfg.PixabayAPIKey)
	if cfg.PixabayAPIKey == "" {
		logger.Log.Warn("Warning: PIXABAY_API_KEY not set. Entries will be saved without mood images")
	}
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		mirror, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Log.WithError(err).Warn("Warning: Failed to initialize Cloudinary. Mood images will not be mirrored")
		} else {
			images = images.WithMirror(mirror)
			logger.Log.Info("✅ Cloudinary image mirroring enabled")
		}
	}

	deps := services.JournalDeps{
		Users:       stores.users,
		Entries:     stores.entries,
		Drafts:      stores.drafts,
		Collections: stores.collections,
		Admission:   services.NewTokenBucket(cfg.PublishRateCapacity, cfg.PublishRateInterval),
		Images:      images,
	}

	hub := services.NewHub()
	var ipLimiter *middleware.IPRateLimiter
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		logger.Log.WithError(err).Warn("⚠️  Redis unavailable. View cache, realtime updates and per-IP limits are disabled")
	} else {
		defer database.DisconnectRedis()
		views := services.NewViewCache(database.RedisClient, cfg.ViewCacheTTL)
		deps.Views = views
		deps.Invalidator = services.Invalidators{views, services.NewRealtimePublisher(database.RedisClient)}
		hub.Start(ctx, database.RedisClient)
		ipLimiter = middleware.NewIPRateLimiter(database.RedisClient)
	}

	if cfg.MongoURI == "" {
		logger.Log.Info("MONGODB_URI not set. Activity log disabled")
	} else if err := database.Connect(cfg.MongoURI); err != nil {
		logger.Log.WithError(err).Warn("⚠️  MongoDB unavailable. Activity log disabled")
	} else {
		defer database.Disconnect()
		activity := services.NewActivityLog(database.DB)
		if err := activity.EnsureIndexes(ctx); err != nil {
			logger.Log.WithError(err).Warn("⚠️  WARNING: failed to ensure MongoDB activity indexes")
		}
		deps.Activity = activity
	}

	journal := services.NewJournalService(deps)

	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logger.Log.Info("✅ Production security enabled (host check, security headers, per-IP burst limiting)")
	}
	if ipLimiter != nil {
		r.Use(ipLimiter.Handler)
	}

	routes.SetupRoutes(r, routes.Handlers{
		Journal:  handlers.NewJournalHandler(journal),
		Users:    handlers.NewUserHandler(services.NewUserService(stores.users)),
		Realtime: handlers.NewRealtimeHandler(journal, hub),
		Verifier: verifier,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithField("port", cfg.Port).Info("🚀 Reflect backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
