package main

import (
	"context"
	"fmt"

	"followup-tracker/internal/config"
	"followup-tracker/internal/factory"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/service"
)

type app struct {
	tracker service.TrackerService
	logger  *logger.Logger
}

// withTracker opens the configured store, restores the tracked state and
// runs fn. The mailbox source is only built when withSource is set.
func withTracker(withSource bool, fn func(*app) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Tunables.Validate(); err != nil {
		return err
	}

	log := logger.New()
	log.SetLevel(cfg.LogLevel)

	storage, err := factory.NewStorage(cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	var source service.MailboxSource
	if withSource {
		if cfg.MailboxSource == config.SourceGmail {
			return fmt.Errorf("the gmail source needs the web sign-in; use MAILBOX_SOURCE=imap or mbox here")
		}
		source, err = factory.NewMailboxSource(cfg, nil, log)
		if err != nil {
			return err
		}
	}

	tracker := service.NewTrackerService(storage.Snapshots, source, cfg.Tunables, log)
	if err := tracker.Load(context.Background()); err != nil {
		return err
	}

	return fn(&app{tracker: tracker, logger: log})
}
