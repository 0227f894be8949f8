// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web3folio/internal/middleware"
	"web3folio/internal/service"
	"web3folio/internal/store"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "scheduler-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := service.NewEventService(db)
	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	return New(logger, events, lp, 90*24*time.Hour)
}

func TestSchedulerStartStop(t *testing.T) {
	s := testScheduler(t)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	s.Stop()
}

func TestPurgeOldEventsRunsClean(t *testing.T) {
	s := testScheduler(t)

	// No events, nothing to purge; must not panic or error
	s.purgeOldEvents()
}
