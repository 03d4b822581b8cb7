package simpleinsert

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/itemservice/internal/database"
)

const tableInfoSQL = "SELECT name FROM pragma_table_info(?) ORDER BY cid"

// Insert writes rows into one table using a statement derived from the
// table's column metadata. The generated key column is left out of the
// statement and its value is returned by ExecuteAndReturnKey.
type Insert struct {
	table     string
	keyColumn string

	mu        sync.Mutex
	columns   []string
	statement string
}

// NewInsert prepares an insert into table whose key column is generated by
// the database. The statement is compiled on first use.
func NewInsert(table, keyColumn string) *Insert {
	return &Insert{table: table, keyColumn: keyColumn}
}

// Columns returns the compiled column list, or nil before the first insert.
func (i *Insert) Columns() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return append([]string(nil), i.columns...)
}

// ExecuteAndReturnKey inserts arg, which is bound by column name, and
// returns the generated key.
func (i *Insert) ExecuteAndReturnKey(ctx context.Context, conn database.Conn, arg any) (int64, error) {
	statement, err := i.compile(ctx, conn)
	if err != nil {
		return 0, err
	}

	res, err := sqlx.NamedExecContext(ctx, conn, statement, arg)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read generated key: %w", err)
	}
	return id, nil
}

func (i *Insert) compile(ctx context.Context, conn database.Conn) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.statement != "" {
		return i.statement, nil
	}

	var names []string
	if err := sqlx.SelectContext(ctx, conn, &names, tableInfoSQL, i.table); err != nil {
		return "", fmt.Errorf("read metadata of table %s: %w", i.table, err)
	}

	columns := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.EqualFold(name, i.keyColumn) {
			columns = append(columns, name)
		}
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s has no insertable columns", i.table)
	}

	i.columns = columns
	i.statement = buildStatement(i.table, columns)
	return i.statement, nil
}

func buildStatement(table string, columns []string) string {
	params := make([]string, len(columns))
	for idx, column := range columns {
		params[idx] = ":" + column
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(params, ", "))
}
