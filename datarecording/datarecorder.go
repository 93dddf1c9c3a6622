// Package datarecording stores simulation records in SQLite tables. Each
// table holds one flat struct type.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrInvalidEntry is returned when an entry has a field that cannot be
// stored in a column.
var ErrInvalidEntry = errors.New("entry is invalid")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry of a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables, sorted.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

const defaultBatchSize = 100_000

// New creates a DataRecorder that writes to path.sqlite3. An empty path
// picks a unique name. The buffered entries are flushed at exit.
func New(path string) DataRecorder {
	if path == "" {
		path = "ahbfabric_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording the fabric into %s\n", filename)

	r := NewWithDB(db)
	atexit.Register(r.Flush)

	return r
}

// NewWithDB creates a DataRecorder that writes to an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	return &recorder{
		db:        db,
		tables:    make(map[string]*table),
		batchSize: defaultBatchSize,
	}
}

type table struct {
	rowType   reflect.Type
	insertSQL string
	pending   []any
}

type recorder struct {
	db        *sql.DB
	tables    map[string]*table
	batchSize int
	buffered  int
	closed    bool
}

var columnKinds = map[reflect.Kind]bool{
	reflect.Bool:    true,
	reflect.Int:     true,
	reflect.Int8:    true,
	reflect.Int16:   true,
	reflect.Int32:   true,
	reflect.Int64:   true,
	reflect.Uint:    true,
	reflect.Uint8:   true,
	reflect.Uint16:  true,
	reflect.Uint32:  true,
	reflect.Uint64:  true,
	reflect.Float32: true,
	reflect.Float64: true,
	reflect.String:  true,
}

// checkStructFields accepts flat structs whose fields are all exported
// scalars or strings.
func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || !columnKinds[f.Type.Kind()] {
			return fmt.Errorf("%w: field %s", ErrInvalidEntry, f.Name)
		}
	}

	return nil
}

func quoted(names []string) []string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = `"` + n + `"`
	}

	return q
}

func (r *recorder) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	if _, exists := r.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	columns := quoted(structs.Names(sampleEntry))
	r.mustExecute("CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ",\n\t") + "\n);")

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	r.tables[tableName] = &table{
		rowType: reflect.TypeOf(sampleEntry),
		insertSQL: "INSERT INTO " + tableName +
			" (" + strings.Join(columns, ", ") + ") VALUES (" + marks + ")",
	}
}

func (r *recorder) InsertData(tableName string, entry any) {
	t, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.rowType {
		panic(fmt.Sprintf("table %s does not take %T", tableName, entry))
	}

	t.pending = append(t.pending, entry)

	r.buffered++
	if r.buffered >= r.batchSize {
		r.Flush()
	}
}

func (r *recorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Flush writes the buffered entries of all the tables in one transaction.
func (r *recorder) Flush() {
	if r.buffered == 0 || r.closed {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range r.ListTables() {
		t := r.tables[name]
		if len(t.pending) == 0 {
			continue
		}

		if err := t.writeTo(tx); err != nil {
			_ = tx.Rollback()
			panic(fmt.Errorf("flush %s: %w", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	r.buffered = 0
}

func (t *table) writeTo(tx *sql.Tx) error {
	stmt, err := tx.Prepare(t.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.pending {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	t.pending = nil

	return nil
}

func (r *recorder) Close() error {
	if r.closed {
		return nil
	}

	r.Flush()
	r.closed = true

	return r.db.Close()
}

func (r *recorder) mustExecute(query string) {
	if _, err := r.db.Exec(query); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}
}
