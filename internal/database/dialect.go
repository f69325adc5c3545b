package database

import "fmt"

// Dialect identifies the SQL flavour of the connected database.
type Dialect int

const (
	MySQL Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "mysql"
}

// UpsertOwnedName returns a statement that inserts (user_id, name) into
// table or, when the pair already exists, leaves the row alone and still
// yields its id.  The conflict is resolved by the table's unique key inside
// the database, so two concurrent callers can never both insert.
//
// When returning is true the id comes back as a result row (RETURNING);
// otherwise it is read from the driver's LastInsertId.
func (d Dialect) UpsertOwnedName(table string) (query string, returning bool) {
	if d == SQLite {
		return fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES (?, ?)
			ON CONFLICT (user_id, name) DO UPDATE SET name = excluded.name
			RETURNING id`, table), true
	}
	// LAST_INSERT_ID(expr) makes LastInsertId report the existing row's id.
	return fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`, table), false
}
