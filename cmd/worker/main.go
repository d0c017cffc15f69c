package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"basketwatch/internal/bootstrap"
	"basketwatch/internal/domains"
	"basketwatch/internal/worker"
	"basketwatch/pkg/config"
	"basketwatch/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/config.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()
	zapLogger.Infof(ctx, "Worker starting: app=%s, env=%s", cfg.App.Name, cfg.App.Env)

	// 3. 初始化检测核心与队列
	core, closeCore, err := bootstrap.NewCore(cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to initialize warehouse: %v", err)
	}
	defer closeCore()

	pubsub, lmstfyClient, err := bootstrap.NewQueue(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize queue: %v", err)
	}
	defer pubsub.Close()

	handlers := domains.NewHandlerMap(domains.Dependencies{
		Detector: core.Orchestrator,
		Notifier: pubsub,
		Logger:   zapLogger,
	})

	// 4. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, lmstfyClient, handlers, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 5. 启动 Manager（goroutine）
	go func() {
		if err := mgr.Start(); err != nil {
			zapLogger.Errorf(ctx, "Manager start failed: %v", err)
			os.Exit(1)
		}
	}()

	zapLogger.Infof(ctx, "Worker started. Press Ctrl+C to shutdown.")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	zapLogger.Infof(ctx, "Received signal: %v, shutting down worker...", sig)

	// 7. 优雅关闭 Manager
	mgr.Shutdown()

	zapLogger.Infof(ctx, "Worker exited gracefully")
}
