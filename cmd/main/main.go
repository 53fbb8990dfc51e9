package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"orderbook-observer/src/book"
	"orderbook-observer/src/config"
	"orderbook-observer/src/data_source/kraken"
	"orderbook-observer/src/engine"
	"orderbook-observer/src/grpc_control"
	"orderbook-observer/src/history"
	"orderbook-observer/src/interfaces"
	"orderbook-observer/src/logger"
	"orderbook-observer/src/metrics"
	"orderbook-observer/src/network"
	"orderbook-observer/src/server"
	"orderbook-observer/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)
	defer appLogger.Sync()

	registry := metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}

	// 1. Token precision from the REST catalogue
	if cfg.Feed.SyncPrecision {
		restCtx, restCancel := context.WithTimeout(ctx, 30*time.Second)
		client := network.NewHTTPClient(cfg.MConfig, appLogger.Named("network"))
		if changed, err := kraken.SyncTokenPrecision(restCtx, client, cfg.MConfig, appLogger.Named("kraken")); err != nil {
			appLogger.Warning("Token precision sync failed, using configured values: %v", err)
		} else {
			appLogger.Info("Token precision synced (%d changed)", changed)
		}
		restCancel()
	}

	// 2. Optional frame recorder
	var recorder *storage.AsyncRecorder
	var db interfaces.IFrameRecorder

	switch cfg.Storage.DBType {
	case "sqlite":
		db = storage.NewSQLiteRecorder(cfg.MConfig, appLogger.Named("storage"))
	case "postgres":
		db, err = storage.NewPostgresRecorder(cfg.MConfig, appLogger.Named("storage"))
		if err != nil {
			appLogger.Critical("Failed to init db: %v", err)
		}
	}
	if db != nil {
		if err := db.Initialize(); err != nil {
			appLogger.Critical("Failed to prepare db: %v", err)
		}
		defer db.Close()
		recorder = storage.NewAsyncRecorder(db, cfg.Storage, appLogger.Named("recorder"))
		wg.Add(1)
		go recorder.Run(ctx, wg)
		appLogger.Info("Recording frames to %s (session %s)", cfg.Storage.DBType, recorder.SessionID)
	}

	// 3. Core: store, history, engine
	store := book.NewStore(cfg.Book.Depth, appLogger.Named("store"))
	ring := history.NewRing(cfg.Book.HistoryCapacity)
	source := kraken.NewKrakenBookSource(cfg.MConfig, appLogger.Named("kraken"))

	eng := engine.NewEngine(cfg.MConfig, store, ring, source, appLogger.Named("engine"))
	if recorder != nil {
		eng.SetRecorder(recorder)
	}

	// 4. Front ends
	srv := server.NewAPIServer(cfg.MConfig, eng, metrics.Handler(registry), appLogger.Named("server"))
	eng.SetPublisher(srv)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	var grpcStop func()
	if cfg.GrpcPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort))
		if err != nil {
			appLogger.Critical("Failed to listen for gRPC: %v", err)
		}
		control := grpc_control.NewControlService(cfg, eng, *configPath, appLogger.Named("grpc"))
		grpcStop = grpc_control.Serve(lis, control, appLogger.Named("grpc")).GracefulStop
	}

	// 5. Engine loop, then the feed that drives it
	engineWg := &sync.WaitGroup{}
	engineWg.Add(1)
	go eng.Run(ctx, engineWg)

	if err := source.Start(ctx, eng.Events(), wg); err != nil {
		appLogger.Critical("Failed to start source: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	if grpcStop != nil {
		grpcStop()
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Warning("Server shutdown: %v", err)
	}
	cancel()        // Signal feed, engine and recorder to stop
	wg.Wait()       // Feed and recorder
	engineWg.Wait() // Engine
}
