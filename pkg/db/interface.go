package db

import "database/sql"

// DBProvider exposes a sql.DB handle. PostgresClient and SupabaseClient both
// satisfy it, so SQLStore runs unchanged against either.
type DBProvider interface {
	DB() *sql.DB
}
