// Package sqlite exports Ledger stores into a SQLite database so they can be
// inspected with ad-hoc SQL. The JSON store files stay the source of truth;
// the database is a snapshot and is rebuilt table by table on every export.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/ledger/pkg/types"
)

// maxParallelLoads bounds the number of stores loaded at once.
const maxParallelLoads = 4

// Source is the set of stores Export reads. *jsonfile.Backend satisfies it.
type Source interface {
	EntityTypes() []*types.EntityType
	Records(entity string) ([]types.Record, error)
}

// TableSummary reports one exported table.
type TableSummary struct {
	Entity  string `json:"entity"`
	Table   string `json:"table"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

// column is an exported column and its inferred SQLite type.
type column struct {
	name    string
	sqlType string
}

// Export loads every store of src and writes each into the SQLite database at
// dbPath, one table per store named after the store. Existing tables with the
// same names are replaced; other tables are left alone. All tables are written
// in one transaction: on error the database is unchanged.
func Export(ctx context.Context, src Source, dbPath string, logger *zap.Logger) ([]TableSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entities := src.EntityTypes()
	loaded := make([][]types.Record, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, et := range entities {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := src.Records(et.Name)
			if err != nil {
				return fmt.Errorf("loading %s: %w", et.Name, err)
			}
			loaded[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning export transaction: %w", err)
	}
	defer tx.Rollback()

	summaries := make([]TableSummary, 0, len(entities))
	for i, et := range entities {
		cols := inferColumns(loaded[i])
		if err := createTable(ctx, tx, et.Store, cols); err != nil {
			return nil, err
		}
		if err := insertRecords(ctx, tx, et.Store, cols, loaded[i]); err != nil {
			return nil, err
		}
		logger.Debug("exported store",
			zap.String("entity", et.Name),
			zap.String("table", et.Store),
			zap.Int("rows", len(loaded[i])))
		summaries = append(summaries, TableSummary{
			Entity:  et.Name,
			Table:   et.Store,
			Columns: len(cols),
			Rows:    len(loaded[i]),
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing export transaction: %w", err)
	}
	return summaries, nil
}

// inferColumns returns the union of record columns in first-seen order. A
// column holding only integers and booleans is INTEGER, one holding only
// numbers is REAL, anything else is TEXT. Nulls do not affect the type.
func inferColumns(records []types.Record) []column {
	var cols []column
	index := make(map[string]int)
	for _, r := range records {
		for _, f := range r {
			i, ok := index[f.Column]
			if !ok {
				i = len(cols)
				index[f.Column] = i
				cols = append(cols, column{name: f.Column})
			}
			cols[i].sqlType = widen(cols[i].sqlType, sqlTypeOf(f.Value))
		}
	}
	for i := range cols {
		if cols[i].sqlType == "" {
			cols[i].sqlType = "TEXT"
		}
	}
	return cols
}

func sqlTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case int64, bool:
		return "INTEGER"
	case float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

func widen(current, next string) string {
	switch {
	case current == "":
		return next
	case next == "" || current == next:
		return current
	case current == "TEXT" || next == "TEXT":
		return "TEXT"
	default:
		return "REAL"
	}
}

func createTable(ctx context.Context, tx *sql.Tx, table string, cols []column) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("dropping table %s: %w", table, err)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.name) + " " + c.sqlType
	}
	// SQLite rejects a table without columns.
	if len(defs) == 0 {
		defs = []string{`"_empty" INTEGER`}
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// insertRecords inserts records into table. A column a record lacks is NULL.
func insertRecords(ctx context.Context, tx *sql.Tx, table string, cols []column, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.name)
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for n, r := range records {
		args := make([]any, len(cols))
		for i, c := range cols {
			v, _ := r.Get(c.name)
			args[i] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting record %d into %s: %w", n, table, err)
		}
	}
	return nil
}

func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
