package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduverse-backend/config"
	"eduverse-backend/internal/api/admin"
	"eduverse-backend/internal/api/donation"
	"eduverse-backend/internal/blockchain"
	"eduverse-backend/internal/metrics"
	"eduverse-backend/internal/middleware"
	"eduverse-backend/internal/repository/mysql"
	"eduverse-backend/internal/service"
	"eduverse-backend/internal/storage"
	"eduverse-backend/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("程序发生严重错误", zap.Any("error", r))
		}
	}()

	// 初始化配置
	config.Init()

	// 初始化日志
	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("应用程序启动")

	// 设置数据库连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.AppConfig.DBUser,
		config.AppConfig.DBPassword,
		config.AppConfig.DBHost,
		config.AppConfig.DBPort,
		config.AppConfig.DBName)

	// 连接数据库
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		util.Logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()

	if err = db.Ping(); err != nil {
		util.Logger.Fatal("数据库连接测试失败", zap.Error(err))
	}
	util.Logger.Info("数据库连接成功")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 注册自定义验证器
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("future_date", util.ValidateFutureDate)
		v.RegisterValidation("tx_hash", util.ValidateTxHash)
	}

	// 初始化区块链提供者（显式构造、可注入，不使用全局单例）
	provider := blockchain.NewBlockfrostProvider(
		config.AppConfig.ProviderBaseURL,
		config.AppConfig.ProviderProjectID,
		time.Duration(config.AppConfig.ProviderTimeout)*time.Second,
	)
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := provider.Initialize(initCtx); err != nil {
		util.Logger.Fatal("区块链提供者初始化失败", zap.Error(err))
	}
	cancelInit()

	// 初始化元数据归档存储；优先远端对象存储，否则落盘本地
	archive := newArchiveStorage()

	// 初始化指标
	reg := metrics.NewRegistry()

	// 初始化存储库、服务和处理器
	donationRepo := mysql.NewDonationRepository(db)
	projectRepo := mysql.NewProjectRepository(db)
	nftRepo := mysql.NewNFTRepository(db)

	verifier := service.NewVerificationService(provider)
	minter := service.NewMinterService(provider, archive, service.MinterConfig{
		PolicyID:         config.AppConfig.NFTPolicyID,
		PolicyExpirySlot: config.AppConfig.NFTPolicyExpirySlot,
		ImageBaseURL:     config.AppConfig.NFTImageBaseURL,
		ExternalBaseURL:  config.AppConfig.FrontendURL,
	})
	fundingService := service.NewFundingService(projectRepo)
	notifier := service.NewEmailNotifier()

	donationService := service.NewDonationService(
		donationRepo,
		nftRepo,
		verifier,
		minter,
		fundingService,
		notifier,
		reg,
		config.AppConfig.PlatformAddress,
		config.AppConfig.MintMaxAttempts,
		time.Duration(config.AppConfig.MintRetryBaseDelay)*time.Second,
	)
	statsService := service.NewStatsService(donationRepo, projectRepo, nftRepo, config.AppConfig.MintMaxAttempts)

	donationHandler := donation.NewDonationHandler(donationService, fundingService)
	adminHandler := admin.NewAdminHandler(donationService, statsService)

	// 启动定时任务：检查过期项目
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		for range ticker.C {
			if err := fundingService.CheckExpiredProjects(); err != nil {
				util.Logger.Error("检查过期项目失败", zap.Error(err))
			}
		}
	}()

	// 启动定时任务：为已确认未铸造的捐赠重试铸造
	go func() {
		ticker := time.NewTicker(2 * time.Minute)
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			if err := donationService.RetryPendingMints(ctx); err != nil {
				util.Logger.Error("铸造重试扫描失败", zap.Error(err))
			}
			cancel()
		}
	}()

	// 初始化错误监控
	errorMonitor := middleware.NewErrorMonitor()

	// 设置 Gin 路由
	r := gin.Default()

	// 添加中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(errorMonitor))

	// 配置 CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{config.AppConfig.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	r.Use(cors.New(corsConfig))

	// 健康检查与指标
	r.GET("/healthz", func(c *gin.Context) {
		if !provider.IsReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "provider not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	// 定义 API 路由
	api := r.Group("/api")
	{
		// 捐赠相关路由
		api.POST("/donations", middleware.AuthMiddleware(), donationHandler.CreateDonation)
		api.POST("/donations/:id/confirm", donationHandler.ConfirmDonation)
		api.PUT("/donations/:id/mint-nft", middleware.AuthMiddleware(), donationHandler.MintNFT)
		api.GET("/donations/leaderboard", donationHandler.GetLeaderboard)
		api.GET("/donations/:id", donationHandler.GetDonation)
		api.GET("/donations", middleware.AuthMiddleware(), donationHandler.ListMyDonations)
		api.GET("/projects/:id/donations", donationHandler.ListProjectDonations)

		// 管理员路由组
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			adminRoutes.GET("/donations/stuck", adminHandler.GetStuckDonations)
			adminRoutes.GET("/stats", adminHandler.GetSystemStats)
		}
	}

	// 创建一个带有超时的 http.Server
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// 在一个新的 goroutine 中启动服务器
	go func() {
		util.Logger.Info("服务器正在启动，监听端口 :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("启动服务器失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	util.Logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		util.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	util.Logger.Info("服务器已优雅关闭")
}

// newArchiveStorage 根据配置选择元数据归档后端
func newArchiveStorage() storage.Storage {
	if config.AppConfig.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(config.AppConfig.S3Region, config.AppConfig.S3Bucket)
		if err != nil {
			util.Logger.Fatal("初始化 S3 归档存储失败", zap.Error(err))
		}
		util.Logger.Info("使用 S3 归档元数据", zap.String("bucket", config.AppConfig.S3Bucket))
		return s3Client
	}

	if config.AppConfig.GCSBucketName != "" {
		gcsClient, err := storage.NewGCSClient(
			config.AppConfig.GCSProjectID,
			config.AppConfig.GCSBucketName,
			config.AppConfig.GCSCredentialsFile,
		)
		if err != nil {
			util.Logger.Fatal("初始化 GCS 归档存储失败", zap.Error(err))
		}
		util.Logger.Info("使用 GCS 归档元数据", zap.String("bucket", config.AppConfig.GCSBucketName))
		return gcsClient
	}

	localStorage, err := storage.NewLocalStorage(config.AppConfig.LocalStoragePath)
	if err != nil {
		util.Logger.Fatal("初始化本地归档存储失败", zap.Error(err))
	}
	return localStorage
}
