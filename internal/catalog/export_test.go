package catalog

import "database/sql"

// ExecForTest runs a raw statement against the store database.
func (s *Store) ExecForTest(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(query, args...)
}
