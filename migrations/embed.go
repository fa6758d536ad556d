// Package migrations compiles the schema SQL into the binary. Importing
// it for side effects (as cmd/fanbridge does) hands the embedded files
// to the database package, so a deployed bridge never needs the .sql
// files on disk.
package migrations

import (
	"embed"

	"github.com/fanbridge/fanbridge/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFS embed.FS

func init() {
	database.MigrationsFS = schemaFS
	database.MigrationsDir = "."
}
