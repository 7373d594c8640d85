package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/fms-tracker/internal/alert"
	"github.com/nhle/fms-tracker/internal/credential"
	"github.com/nhle/fms-tracker/internal/model"
	"github.com/nhle/fms-tracker/internal/store"
	"github.com/nhle/fms-tracker/internal/tracker"
)

// services bundles everything a command needs.
type services struct {
	store   *store.SQLiteStore
	tracker *tracker.Service
	scanner *alert.Scanner
}

func (s *services) Close() error {
	return s.store.Close()
}

// openServices opens the database and wires the tracker and delay scanner
// from the loaded configuration.
func openServices(cfg *model.AppConfig, logger *zap.Logger) (*services, error) {
	st, err := store.NewSQLiteStore(expandHome(cfg.Database.Path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	notifier, err := alert.NewNotifier(cfg.Alerts, logger, credentials(cfg).Lookup(credential.IMAPPasswordKey))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &services{
		store:   st,
		tracker: tracker.New(st, tracker.WithLogger(logger)),
		scanner: alert.NewScanner(st, notifier,
			alert.WithThreshold(cfg.Alerts.ThresholdHours),
			alert.WithLogger(logger)),
	}, nil
}

// credentials returns the keyring selected by the credentials section.
func credentials(cfg *model.AppConfig) *credential.Keyring {
	dir := expandHome(cfg.Credentials.Dir)
	if cfg.Credentials.FileOnly {
		return credential.NewFile(dir)
	}
	return credential.New(dir)
}
