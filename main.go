package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/handler"
	"github.com/alihoumani6/instastage-backend/middleware"
	"github.com/alihoumani6/instastage-backend/service"
	"github.com/alihoumani6/instastage-backend/staging"
	"github.com/alihoumani6/instastage-backend/utils"
	"github.com/alihoumani6/instastage-backend/vision"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting instastage server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	ctx := context.Background()

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	var cache handler.ResultCache
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
		cache = redisService
	}
	defer redisService.Close()

	// 编辑服务
	editor, err := service.NewEditor(ctx, &cfg.Editor)
	if err != nil {
		utils.Logger.Fatal("failed to create editor", zap.Error(err))
	}
	utils.Logger.Info("editor ready",
		zap.String("provider", cfg.Editor.Provider),
		zap.String("openai_model", cfg.Editor.OpenAIModel),
		zap.String("openai_fallback", cfg.Editor.OpenAIFallback))

	stager := staging.NewStager(editor, &cfg.Staging)
	planner := staging.NewRoomLayoutPlanner(&cfg.Layout)

	stageHandler := handler.NewStageHandler(cfg, stager, planner, cache).
		WithCutout(vision.NewCutoutService(&cfg.Cutout)).
		WithObstacles(vision.NewObstacleDetector())

	if generator := service.NewCatalogGenerator(&cfg.Editor, &cfg.Generator); generator != nil {
		stageHandler.WithGenerator(generator)
		utils.Logger.Info("catalog generator ready",
			zap.String("model", cfg.Generator.Model),
			zap.String("fallback", cfg.Generator.FallbackModel))
	}

	if cfg.Analyzer.Enabled {
		analyzer, err := service.NewRoomAnalyzer(ctx, cfg.Editor.GeminiAPIKey, &cfg.Analyzer)
		if err != nil {
			utils.Logger.Warn("room analyzer disabled", zap.Error(err))
		} else {
			stageHandler.WithAnalyzer(analyzer)
		}
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())
	r.MaxMultipartMemory = cfg.Upload.MaxSize * 4

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": Version,
			"cache":   cache != nil,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	api := r.Group("/api/v1")
	{
		api.POST("/stage", stageHandler.Stage)
		api.POST("/compose", stageHandler.Compose)
		api.GET("/staged/:key", stageHandler.GetStaged)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
