package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/skilldepot/skilldepot/internal"
	"github.com/skilldepot/skilldepot/internal/config"
	"github.com/skilldepot/skilldepot/internal/database"
	"github.com/skilldepot/skilldepot/internal/database/migrations"
	"github.com/skilldepot/skilldepot/internal/importer"
	"github.com/skilldepot/skilldepot/internal/session"
	sessionrepo "github.com/skilldepot/skilldepot/internal/session/repositoryimpl"
	"github.com/skilldepot/skilldepot/internal/skill"
	skillrepo "github.com/skilldepot/skilldepot/internal/skill/repositoryimpl"
	"github.com/skilldepot/skilldepot/pkg/clog"
	"github.com/skilldepot/skilldepot/pkg/storage"
)

const sessionSweepInterval = time.Minute

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup database
	db, err := database.Open(env.DBEnv.Path)
	if err != nil {
		slog.Error("failed to open database", "path", env.DBEnv.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Setup session store, backed by blob storage when persistence is wanted
	var sessions session.Store
	switch env.SessionEnv.StoreType {
	case "yaml":
		var store storage.Storage
		switch env.StorageEnv.Type {
		case "s3":
			store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
			if err != nil {
				slog.Error("failed to create S3 storage", "error", err)
				os.Exit(1)
			}
		default:
			store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
			if err != nil {
				slog.Error("failed to create local storage", "error", err)
				os.Exit(1)
			}
		}
		sessions = sessionrepo.NewYAMLStore(store)
	default:
		sessions = session.NewMemoryStore()
	}

	// Setup services
	repo := skillrepo.NewSQLiteRepository(db)
	engine := skill.NewService(repo)
	pipeline := importer.NewPipeline(engine, sessions)

	srv := server.NewServer(env, skill.NewServer(engine), importer.NewServer(pipeline))

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go session.Sweep(ctx, sessions, sessionSweepInterval)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
