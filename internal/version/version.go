// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

// Build-time version information injected via ldflags.
var (
	Version   = "dev" // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit = ""    // Short git commit hash (e.g., "abc1234")
	BuildTime = ""    // Build timestamp in RFC3339 format
)

// String returns the version with the commit hash when available.
func String() string {
	if GitCommit == "" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
