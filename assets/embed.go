// Package assets carries files compiled into the server binary.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Migrations returns the SQL migration scripts rooted at the migration
// directory, so names are plain "0001_init.sql" style entries.
func Migrations() fs.FS {
	sub, err := fs.Sub(sqlFS, "sql")
	if err != nil {
		// sql/ is embedded at compile time; Sub only fails on a bad pattern.
		panic(err)
	}
	return sub
}
