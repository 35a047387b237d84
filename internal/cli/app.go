package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chris/attune/config"
	"github.com/chris/attune/internal/checkin"
	"github.com/chris/attune/internal/db"
	"github.com/chris/attune/internal/logging"
	"github.com/chris/attune/internal/tracking"
)

// app is what every command needs: config, logger and the check-in service.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	checkin *checkin.Service
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store := tracking.NewStore(cfg.TrackingPath,
		tracking.WithLocation(loc),
		tracking.WithLogger(log.Named("tracking")),
	)
	svc := checkin.New(store,
		checkin.WithName(cfg.UserName),
		checkin.WithLogger(log.Named("checkin")),
	)
	return &app{cfg: cfg, log: log, checkin: svc}, nil
}

func (a *app) openDB() (*db.DB, error) {
	database, err := db.Open(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
