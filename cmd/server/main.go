package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"groupchat/internal/auth"
	"groupchat/internal/config"
	"groupchat/internal/logging"
	"groupchat/internal/server"
	"groupchat/internal/store"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogDebug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)
	st, err := store.Open(store.Options{Dir: cfg.DataDir, Logger: logger})
	if err != nil {
		logger.Fatal("open store", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	tokenCfg := auth.DefaultTokenConfig(cfg.MasterSecret)
	tokenCfg.Expiry = cfg.TokenExpiry

	router := server.NewRouter(server.Deps{Store: st, TokenConfig: tokenCfg, Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, router, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
