package migrations

import _ "embed"

//go:embed 2024112202_create_matches.sql
var createMatchesSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createMatchesSQL),
		execSQL(`DROP TABLE IF EXISTS matches`),
	)
}
