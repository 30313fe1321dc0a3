package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"heartmatch/cache"
	"heartmatch/config"
	"heartmatch/database"
	"heartmatch/handlers"
	"heartmatch/middleware"
	"heartmatch/notify"
	"heartmatch/repositories"
	"heartmatch/routes"
	"heartmatch/services"
	"heartmatch/storage"
	"heartmatch/websocket"
)

func main() {
	log.SetReportTimestamp(true)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("starting HeartMatch backend", "mode", gin.Mode(), "storage", cfg.StorageDriver, "images", cfg.ImageStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open storage", "err", err)
	}
	defer closeStore()

	var profiles services.ProfileCache
	if cfg.RedisAddr != "" {
		c, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.ProfileCacheTTL)
		if err != nil {
			log.Warn("Redis unavailable, profile cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer c.Close()
			profiles = c
		}
	}

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to configure image store", "err", err)
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	auth := services.NewAuthService(store.Users, tokens)
	users := services.NewUserService(store.Users, profiles)

	hub := websocket.NewHub(services.NewPresence(users, store.Matches))
	go hub.Run(ctx)

	notifier, closeNotifier := buildNotifier(ctx, cfg, store, hub)
	defer closeNotifier()

	h := &handlers.Handler{
		Auth:    auth,
		Users:   users,
		Feed:    services.NewFeedService(store.Users, store.Matches),
		Swipes:  services.NewSwipeService(store, users, notifier),
		Chat:    services.NewChatService(store, notifier),
		Uploads: services.NewUploadService(images, users, cfg.MaxUploadBytes),
		Push:    services.NewPushService(store.Pushes, cfg.VAPIDPublicKey),
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go sweepLimiter(ctx, limiter, cfg.RateLimitWindow)

	opts := routes.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: limiter,
		WebSocket:   hub.Handler(auth),
	}
	if cfg.ImageStore == config.ImageStoreLocal {
		opts.UploadDir = cfg.UploadDir
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.SetupRouter(h, opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "ws", "/ws")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
	}
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTransactions)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Disconnect()
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Disconnect(); err != nil {
			log.Error("failed to disconnect from MongoDB", "err", err)
		}
	}
	return db.Store(), closeFn, nil
}

func openImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStore {
	case config.ImageStoreCloudinary:
		return storage.NewCloudinaryStore(cfg.CloudinaryURL)
	case config.ImageStoreS3:
		return storage.NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket)
	default:
		return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	}
}

// buildNotifier delivers events to this instance's sockets, through RabbitMQ
// when configured, and to browser push when VAPID keys are set.
func buildNotifier(ctx context.Context, cfg *config.Config, store *repositories.Store, hub *websocket.Hub) (services.Notifier, func()) {
	var realtime services.Notifier = hub
	closeFn := func() {}

	if cfg.RabbitMQURL != "" {
		relay, err := notify.DialRabbitRelay(cfg.RabbitMQURL, cfg.RabbitMQExchange, hub)
		if err != nil {
			log.Warn("RabbitMQ unavailable, delivering events locally", "err", err)
		} else if err := relay.Start(ctx); err != nil {
			log.Warn("RabbitMQ relay failed to start, delivering events locally", "err", err)
			_ = relay.Close()
		} else {
			realtime = relay
			closeFn = func() {
				if err := relay.Close(); err != nil {
					log.Error("failed to close RabbitMQ relay", "err", err)
				}
			}
		}
	}

	fanout := notify.Fanout{realtime}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		fanout = append(fanout, notify.NewPushNotifier(store.Pushes, cfg.VAPIDSubject, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey))
	} else {
		log.Info("VAPID keys not set, push notifications disabled")
	}
	return fanout, closeFn
}

func sweepLimiter(ctx context.Context, rl *middleware.IPRateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
