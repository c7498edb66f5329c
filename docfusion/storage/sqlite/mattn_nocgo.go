//go:build !cgo

package sqlite

const DriverMattn = "sqlite3_docfusion"

func mattnAvailable() bool { return false }
