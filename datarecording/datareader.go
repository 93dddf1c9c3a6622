package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// QueryParams selects, orders and pages the rows of a table.
type QueryParams struct {
	// Where is an SQL condition with ? placeholders, such as
	// "Start > ? AND Master = ?".
	Where string
	Args  []any

	// OrderBy is an SQL ordering term, such as "Start DESC".
	OrderBy string

	// Limit caps the rows returned; 0 returns all of them. Offset is only
	// honored together with a limit.
	Limit  int
	Offset int
}

func (p QueryParams) filter() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) page() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads back the tables of a recording.
type DataReader interface {
	// MapTable tells the reader the row type of a table. Only mapped tables
	// can be queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the names of the mapped tables in order.
	ListTables() []string

	// Query returns the selected rows as pointers to the mapped type, and
	// the number of rows that satisfy the filter before paging.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type sqliteReader struct {
	db       *sql.DB
	rowTypes map[string]reflect.Type
}

// NewReader opens the recording in a SQLite file.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", dbFilename, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads the recording in an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:       db,
		rowTypes: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.rowTypes[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.rowTypes))
	for name := range r.rowTypes {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Query counts and selects within one read-only transaction, so the total
// matches the rows even while a recorder is flushing.
func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	rowType, ok := r.rowTypes[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	var total int

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+params.filter(),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", tableName, err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT * FROM "+tableName+params.filter()+params.page(),
		params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, rowType)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", tableName, err)
	}

	return results, total, nil
}

// decodeRows fills one struct per row, matching columns to fields by name.
// Columns without a field are dropped.
func decodeRows(rows *sql.Rows, rowType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldOf := make([]int, len(columns))
	for i, col := range columns {
		fieldOf[i] = -1

		if f, ok := rowType.FieldByName(col); ok && len(f.Index) == 1 {
			fieldOf[i] = f.Index[0]
		}
	}

	var (
		results []any
		discard any
	)

	targets := make([]any, len(columns))

	for rows.Next() {
		row := reflect.New(rowType)

		for i, field := range fieldOf {
			targets[i] = &discard
			if field >= 0 {
				targets[i] = row.Elem().Field(field).Addr().Interface()
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, row.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
