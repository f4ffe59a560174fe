package db

import "embed"

// Migrations holds the SQLite schema applied by internal/db.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
