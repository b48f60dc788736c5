package dataset

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/hupe1980/strata/model"
)

// DefaultQuery selects the key and value columns of the records table.
const DefaultQuery = "SELECT key, value FROM records ORDER BY key"

// FromSQLite runs query against the database at path and returns one record
// per row. The query must yield two columns, the key and the value. NULL
// values become empty strings.
func FromSQLite[K model.Key](ctx context.Context, path, query string) ([]model.Entry[K, string], error) {
	if query == "" {
		query = DefaultQuery
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sqlite %s: %w", path, err)
	}
	defer rows.Close()

	var (
		out []model.Entry[K, string]
		row int
	)
	for rows.Next() {
		row++
		var (
			key   K
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrMalformed, row, err)
		}
		out = append(out, model.Entry[K, string]{Key: key, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query sqlite %s: %w", path, err)
	}
	return out, nil
}
