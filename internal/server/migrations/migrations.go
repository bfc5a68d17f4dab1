// Package migrations embeds the Postgres schema of the blog backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
