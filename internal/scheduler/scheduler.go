// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs recurring maintenance jobs: audit log retention and
// sign-in protection cleanup.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"web3folio/internal/middleware"
	"web3folio/internal/model"
	"web3folio/internal/service"
)

// Scheduler handles recurring background jobs.
type Scheduler struct {
	cron            *cron.Cron
	logger          *slog.Logger
	events          *service.EventService
	loginProtection *middleware.LoginProtection
	eventRetention  time.Duration
}

// New creates a new scheduler instance.
func New(logger *slog.Logger, events *service.EventService, lp *middleware.LoginProtection, eventRetention time.Duration) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		logger:          logger,
		events:          events,
		loginProtection: lp,
		eventRetention:  eventRetention,
	}
}

// Start registers the jobs and begins the scheduler.
func (s *Scheduler) Start() error {
	// Purge expired audit events nightly
	if _, err := s.cron.AddFunc("0 3 * * *", s.purgeOldEvents); err != nil {
		return err
	}

	// Drop stale sign-in lockout state every 10 minutes
	if _, err := s.cron.AddFunc("*/10 * * * *", s.loginProtection.Sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// purgeOldEvents deletes audit events older than the retention window.
func (s *Scheduler) purgeOldEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.events.DeleteOldEvents(ctx, s.eventRetention)
	if err != nil {
		s.logger.Error("failed to purge old events", "error", err)
		return
	}

	if deleted == 0 {
		return
	}

	s.logger.Info("purged old events", "deleted", deleted, "retention", s.eventRetention)
	_ = s.events.LogSystemEvent(ctx, model.EventLevelInfo, "Audit log retention purge completed", nil, "", map[string]any{
		"deleted":        deleted,
		"retention_days": int(s.eventRetention.Hours() / 24),
	})
}
