package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"boxscore-service/config"
	"boxscore-service/database"
	"boxscore-service/document"
	"boxscore-service/services"
	"boxscore-service/web"
)

func main() {
	log.Println("Starting Boxscore Ingestion Service...")

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	// 创建数据源客户端 (共享限速)
	sourceClient := document.NewClient(document.Config{
		BaseURL:     cfg.SourceBaseURL,
		AccessToken: cfg.SourceAccessToken,
		MinInterval: cfg.FetchMinInterval,
		Concurrency: cfg.FetchConcurrency,
	})

	// 创建核心服务
	rawStore := services.NewRawGameStore(db)
	temporal := services.NewTemporalTracker(db, cfg.ReconcileBatchSize)
	populator := services.NewGamePopulator(db, rawStore, temporal, cfg.PopulateWorkers)
	verifier := services.NewGameVerifier(rawStore, populator, sourceClient, cfg.FetchBatchSize, cfg.FetchBatchPause)
	ingestor := services.NewGameIngestor(sourceClient, rawStore, populator, temporal,
		cfg.FetchBatchSize, cfg.FetchBatchPause, cfg.AutoReconcile)

	// 创建WebSocket Hub (进度广播)
	wsHub := web.NewHub()
	go wsHub.Run()
	populator.SetNotifier(wsHub)
	verifier.SetNotifier(wsHub)

	// 启动上游更新监听 (可选)
	var listener *services.UpdateListener
	if cfg.AMQPEnabled {
		listener = services.NewUpdateListener(cfg, verifier)
		go func() {
			if err := listener.Start(); err != nil {
				log.Printf("Update listener error: %v", err)
			}
		}()
		log.Println("Update listener started")
	}

	// 启动Web服务器
	server := web.NewServer(cfg, db, wsHub, rawStore, ingestor, populator, verifier, temporal)
	go func() {
		log.Printf("Web server listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			log.Printf("Web server error: %v", err)
		}
	}()

	// 等待退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if listener != nil {
		listener.Stop()
	}
	server.Stop()
	log.Println("Shutdown complete")
}
