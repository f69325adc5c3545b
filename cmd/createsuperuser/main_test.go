package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/recipe-app-api/internal/database"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	o, err := parseFlags([]string{"-email", " admin@Example.com ", "-password", "s3cret"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "admin@Example.com", o.email)
	assert.Equal(t, "s3cret", o.password)

	_, err = parseFlags([]string{"-password", "s3cret"}, &stderr)
	assert.EqualError(t, err, "-email is required")

	_, err = parseFlags([]string{"-email", "admin@example.com"}, &stderr)
	assert.ErrorContains(t, err, "-password must be at least")

	_, err = parseFlags([]string{"-bogus"}, &stderr)
	assert.Error(t, err)
}

func TestRunRejectsBadFlagsBeforeTouchingTheDatabase(t *testing.T) {
	var stdout, stderr bytes.Buffer
	// no DB env is set; reaching config.Load would exit the test binary
	code := run([]string{"-email", "admin@example.com", "-password", ""}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "-password")
	assert.Empty(t, stdout.String())
}

func TestRunCreatesSuperuser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.db")
	require.NoError(t, database.Migrate(database.SQLite, database.SQLiteMigrationURL(path)))
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", path)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-email", "admin@EXAMPLE.com", "-password", "s3cret"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "superuser admin@example.com created")

	stdout.Reset()
	stderr.Reset()
	assert.Equal(t, 1, run([]string{"-email", "admin@example.com", "-password", "s3cret"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "create superuser")
}
