package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/database"
	"github.com/tankobon/tankobon/pkg/migrations"
	"github.com/tankobon/tankobon/pkg/server"
	"github.com/tankobon/tankobon/pkg/version"
	"github.com/tankobon/tankobon/pkg/worker"
)

func main() {
	ctx := context.Background()
	log := logger.New()
	ctx = log.WithContext(ctx)

	log.Info("starting tankobon", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initCacheDir(cfg.CacheDir); err != nil {
		log.Err(err).Fatal("cache directory error")
	}
	log.Info("cache directory initialized", logger.Data{"path": cfg.CacheDir})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	err = auth.NewService(db, cfg.JWTSecret).EnsureInitialAdmin(ctx, cfg.InitialAdminUsername, cfg.InitialAdminPassword)
	if err != nil {
		log.Err(err).Fatal("initial admin error")
	}

	wrkr := worker.New(cfg, db)

	srv, err := server.New(cfg, db, wrkr)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	// Recover leftover tasks before requests can submit new ones.
	wrkr.Start()
	log.Info("worker started", logger.Data{"processes": cfg.WorkerProcesses})

	graceful := signals.Setup()

	go func() {
		log.Info("server started", logger.Data{"addr": srv.Addr})
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initCacheDir creates the thumbnail cache and verifies that it's writable.
func initCacheDir(dir string) error {
	thumbnails := filepath.Join(dir, "thumbnails")
	if err := os.MkdirAll(thumbnails, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create cache directory: %s", thumbnails)
	}

	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return errors.Wrapf(err, "cache directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(f.Name()); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", f.Name())
	}
	return nil
}
