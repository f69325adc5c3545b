package migrations

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Natural keys compare byte-wise on MySQL, as they do on SQLite.
func TestMySQLNaturalKeysAreCaseSensitive(t *testing.T) {
	cases := map[string]*regexp.Regexp{
		"mysql/000001_create_users.up.sql":   regexp.MustCompile(`(?m)^\s*email\s+VARCHAR\(255\)\s+NOT NULL COLLATE utf8mb4_bin,`),
		"mysql/000002_create_recipes.up.sql": regexp.MustCompile(`(?m)^\s*name\s+VARCHAR\(255\)\s+NOT NULL COLLATE utf8mb4_bin,`),
	}
	for file, re := range cases {
		bs, err := fs.ReadFile(FS, file)
		require.NoError(t, err, file)
		assert.Regexp(t, re, string(bs), file)
	}
}

func TestEveryUpHasADown(t *testing.T) {
	for _, dir := range []string{"mysql", "sqlite3"} {
		ups, err := fs.Glob(FS, dir+"/*.up.sql")
		require.NoError(t, err)
		require.NotEmpty(t, ups, dir)
		for _, up := range ups {
			_, err := fs.Stat(FS, strings.TrimSuffix(up, ".up.sql")+".down.sql")
			assert.NoError(t, err, up)
		}
	}
}
