// Package migrations embeds the decision journal schema for each backend.
// Migrations are embedded so they work regardless of working directory.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql, applied in file name order.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
