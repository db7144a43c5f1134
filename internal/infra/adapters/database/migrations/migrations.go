package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var MigrationsFS embed.FS

// Dir - каталог миграций для драйвера
func Dir(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}

	return "postgres"
}
