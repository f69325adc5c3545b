// Package migrations bundles the SQL schema for every supported dialect.
// Each subdirectory is a golang-migrate source named after the driver.
package migrations

import "embed"

//go:embed mysql/*.sql sqlite3/*.sql
var FS embed.FS
