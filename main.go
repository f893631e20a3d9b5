package main

import (
	"context"
	"expvar"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/wfunc/roomserver/cache"
	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/monitor"
	"github.com/wfunc/roomserver/persistence"
	"github.com/wfunc/roomserver/rpc"
	"github.com/wfunc/roomserver/server"
	"github.com/wfunc/roomserver/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		logger.Log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	recorder, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Infow("history recorder ready", "driver", cfg.Database.Driver)

	var publisher services.Publisher
	if cfg.Redis.Enabled {
		rdb, err := cache.Connect(cfg.Redis)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		publisher = cache.NewEventPublisher(rdb, cfg.Redis.Queue, cfg.Redis.MaxLen)
		logger.Log.Infow("lifecycle events published to redis", "queue", cfg.Redis.Queue)
	}
	history := services.NewHistoryService(recorder, publisher, 0)

	mon := monitor.NewMonitor(cfg.Monitor.Namespace)
	expvar.Publish("roomserver", mon.Vars())

	gameServer := server.NewGameServer(cfg, history, mon)

	if cfg.Server.GRPCAddress != "" {
		health, err := rpc.NewHealthServer(cfg.Server.GRPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to start gRPC health server: %v", err)
		}
		gameServer.SetHealthReporter(health)
		go health.Start()
		defer health.Stop()
	}

	if cfg.Server.RPCAddress != "" {
		diag := rpc.NewDiagnostics(gameServer.Rooms(), gameServer.Sessions())
		rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, diag)
		if err != nil {
			logger.Log.Fatalf("Failed to start RPC server: %v", err)
		}
		go rpcServer.Start()
		defer rpcServer.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Log.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Warnw("http shutdown", "error", err)
	}
	if err := history.Stop(); err != nil {
		logger.Log.Warnw("history shutdown", "error", err)
	}
}
