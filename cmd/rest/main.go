package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"monitoring-workspace-be/internal/bootstrap"
	"monitoring-workspace-be/internal/config"
	"monitoring-workspace-be/internal/server"
	"monitoring-workspace-be/internal/tracer"
	"monitoring-workspace-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing, cfg.App.InstanceID)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database (only the postgres storage driver needs it)
	var gormDB *gorm.DB
	if cfg.Workspace.StorageDriver == "postgres" {
		var err error
		gormDB, err = database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start Background Services
	go container.WebSocketHub.Run(ctx)
	go container.SweeperService.Run(ctx)
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}
	if container.ClusterSync != nil {
		if err := container.ClusterSync.Start(); err != nil {
			log.Printf("Cluster sync disabled: %v", err)
		}
	}
	if container.ActivityLog != nil {
		if err := container.ActivityLog.Start(); err != nil {
			log.Printf("Activity log disabled: %v", err)
		}
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
