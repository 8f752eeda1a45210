//go:build cgosqlite
// +build cgosqlite

package storage

// This file is compiled when building with CGO and the cgosqlite tag.
// It uses the C SQLite library through the mattn driver.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "cgosqlite" ./...
//
// The CGO build provides:
//   - Fastest insert throughput for large scan batches
//   - Native WAL checkpointing
//   - Recommended for production deployments
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
