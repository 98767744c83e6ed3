// Package migrations embeds the participant directory schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/thermlog/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
