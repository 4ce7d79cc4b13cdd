package migrations

import _ "embed"

//go:embed 2024112203_create_users.sql
var createUsersSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createUsersSQL),
		execSQL(`DROP TABLE IF EXISTS user_match_history; DROP TABLE IF EXISTS users`),
	)
}
