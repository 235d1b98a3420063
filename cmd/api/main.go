package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"edwid/api/internal/app"
	"edwid/api/internal/assets"
	"edwid/api/internal/auth"
	"edwid/api/internal/blog"
	"edwid/api/internal/cache"
	"edwid/api/internal/config"
	"edwid/api/internal/export"
	"edwid/api/internal/mockdata"
	"edwid/api/internal/search"
	"edwid/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}
	dataStore := store.NewPostgresStore(db)

	localCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer localCache.Close()

	var assetStore *assets.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		assetStore, err = assets.New(ctx, assets.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}

	deps := blog.Deps{
		Remote:        dataStore,
		Cache:         localCache,
		Generate:      mockdata.Generate,
		Locale:        cfg.DemoLocale,
		ImageMaxBytes: cfg.ImageMaxBytes,
	}
	if assetStore != nil {
		deps.Assets = assetStore
	}
	blogService := blog.New(deps)

	searchService := search.NewService(meiliClient, blogService.Posts)
	blogService.SetIndex(searchService)

	authService := auth.NewService(dataStore, cfg.JWTSecret, cfg.AccessTTL)
	authService.OnSessionChange(func(session *auth.Session) {
		if session == nil {
			blogService.SetIdentity(nil)
			return
		}
		blogService.SetIdentity(&blog.Identity{
			ID:        session.UserID,
			Email:     session.Email,
			Anonymous: session.Anonymous,
		})
	})

	serviceCtx, cancelService := context.WithCancel(ctx)
	defer cancelService()
	if err := blogService.Start(serviceCtx); err != nil {
		log.Printf("WARNING: remote subscription failed, continuing offline: %v", err)
	}
	defer blogService.Close()

	httpServer := app.NewHTTPServer(app.Deps{
		Blog:       blogService,
		Auth:       authService,
		Search:     searchService,
		Export:     export.NewService(),
		CORSOrigin: cfg.CORSOrigin,
		Ping:       db.PingContext,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("edwid API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
