// Package db holds the SQL schema migrations applied by halyardctl.
package db

import "embed"

// Migrations contains the golang-migrate up/down files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
