package sqlite

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// DriverName is go-sqlite3 with go_lower registered on every connection.
// SQLite's own lower() folds ASCII only, so text search uses go_lower.
const DriverName = "sqlite3_tasks"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("go_lower", strings.ToLower, true)
		},
	})
}
