package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumhub/internal/cache"
	"forumhub/internal/config"
	"forumhub/internal/database"
	"forumhub/internal/handler"
	"forumhub/internal/logger"
	"forumhub/internal/queue"
	"forumhub/internal/redis"
	"forumhub/internal/repository"
	"forumhub/internal/service"
	"forumhub/internal/worker"
)

const (
	shutdownTimeout    = 15 * time.Second
	tokenPurgeInterval = time.Hour
)

func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	redisClient, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	discussionRepo := repository.NewDiscussionRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	feedCache := cache.NewFeedCache(redisClient.Client)
	publisher := queue.NewPublisher(redisClient.Client)

	var images service.ImageStore
	if cfg.R2Enabled() {
		media, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init media storage: %w", err)
		}
		images = media
	} else {
		logger.Warn.Println("[Server] R2 is not configured, image uploads are disabled")
	}

	userService := service.NewUserService(userRepo, followRepo)
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	followService := service.NewFollowService(followRepo, userRepo, publisher)
	discussionService := service.NewDiscussionService(discussionRepo, commentRepo, userRepo, images, publisher)
	commentService := service.NewCommentService(commentRepo, discussionRepo, userRepo)
	feedService := service.NewFeedService(feedCache, discussionRepo, commentRepo, followRepo, userRepo)

	go purgeTokens(ctx, authService, tokenPurgeInterval)

	workers := worker.NewManager(
		queue.NewConsumer(redisClient.Client),
		worker.NewHandler(feedCache, followRepo, discussionRepo),
		worker.ManagerConfig{WorkerCount: cfg.FeedWorkers},
	)
	if err := workers.Start(ctx); err != nil {
		return fmt.Errorf("failed to start feed workers: %w", err)
	}
	defer workers.Stop()

	router := NewRouter(RouterConfig{
		AuthHandler:       handler.NewAuthHandler(userService, authService),
		UserHandler:       handler.NewUserHandler(userService),
		FollowHandler:     handler.NewFollowHandler(followService),
		DiscussionHandler: handler.NewDiscussionHandler(discussionService),
		CommentHandler:    handler.NewCommentHandler(commentService),
		FeedHandler:       handler.NewFeedHandler(feedService),
		JWTSecret:         cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info.Printf("[Server] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info.Println("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// purgeTokens clears long-expired refresh tokens at startup and then on every tick.
func purgeTokens(ctx context.Context, auth *service.AuthService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := auth.PurgeExpiredTokens(ctx); err != nil && ctx.Err() == nil {
			logger.Warn.Printf("[Server] refresh token purge failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
