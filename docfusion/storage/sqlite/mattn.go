//go:build cgo

package sqlite

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// DriverMattn is the cgo driver with the JSON functions installed on every connection.
const DriverMattn = "sqlite3_docfusion"

func init() {
	sql.Register(DriverMattn, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for name, fn := range scalarFuncs {
				if err := conn.RegisterFunc(name, func(a, b any) (any, error) { return fn(a, b) }, true); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

func mattnAvailable() bool { return true }
