// Package migrations embeds the goose SQL migrations. The statements stay
// within the subset shared by sqlite and Postgres.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
