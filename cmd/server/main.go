package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/api"
	"civic-complaints/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logrus.SetLevel(cfg.LogLevel)
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	server, err := api.NewServer(api.Config{
		DBPath:            cfg.DBPath,
		SilentDB:          !cfg.Debug,
		AllowedOrigins:    cfg.AllowedOrigins,
		JWTSecret:         cfg.JWTSecret,
		TokenTTLs:         cfg.TokenTTLs,
		AIConfig:          cfg.AI,
		DisableAI:         cfg.DisableAI,
		AIRetries:         cfg.AIRetries,
		AnalysisTimeout:   cfg.AnalysisTimeout,
		PhotoDir:          cfg.PhotoDir,
		MaxPhotoBytes:     cfg.MaxPhotoBytes,
		Minio:             cfg.Minio,
		UseMinio:          cfg.UseMinio(),
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
		PriorityRulesPath: cfg.PriorityRulesPath,
		Categories:        cfg.Categories,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"db":         cfg.DBPath,
		"categories": cfg.Categories,
	}).Infof("starting civic complaints backend on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
