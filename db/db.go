// Package db provides the database component of the atelier back
// office. The backend is a single-file sqlite database, which suits a
// single-shop deployment, but the database is not treated as a simple
// storage layer. Each query is held in an sql file in the `sql`
// directory, which can be run on the sqlite command line. (For some
// queries it is advisable to run the sql in a transaction, so that the
// results can be rolled back.)
//
// The use of external, runnable sql files also as Go prepared
// statements is made possible through the parameterization scheme set
// out in parameterize.go.
//
// Multi-statement business operations (order create/update/merge,
// customer merge) run inside a single database transaction; prepared
// statements are rebound to the transaction with bind.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx" // helper library
	_ "modernc.org/sqlite"    // pure go sqlite driver
)

//go:embed sql
var sqlEmbeddedFS embed.FS

// parameterizedStmt describes an sql file parsed into an sqlx
// NamedStmt expecting the provided args.
type parameterizedStmt struct {
	sqlFile string
	args    []string
	*sqlx.NamedStmt
}

// verifyArgs determines if the number of arguments provided to a
// parameterizedStmt is as expected. This check could be more thorough.
func (p *parameterizedStmt) verifyArgs(args map[string]any) error {
	if got, want := len(args), len(p.args); got != want {
		return fmt.Errorf(
			"argument length to named statement from %q incorrect: got %d want %d",
			p.sqlFile,
			got,
			want,
		)
	}
	return nil
}

// bind associates the prepared statement with the given transaction so
// that it executes on the transaction's connection.
func (p *parameterizedStmt) bind(ctx context.Context, tx *sqlx.Tx) *sqlx.NamedStmt {
	return tx.NamedStmtContext(ctx, p.NamedStmt)
}

// DB provides a wrapper around the sql.DB connection for
// application-specific db operations.
type DB struct {
	*sqlx.DB
	logger *log.Logger
	sqlFS  fs.FS
	stmts  map[string]*parameterizedStmt
}

// NewConnection creates a new connection to an SQLite database at the
// given path. The connection pool is limited to a single connection:
// sqlite permits one writer at a time and the application relies on
// transaction-bound prepared statements sharing that connection.
func NewConnection(dbPath string, logger *log.Logger) (*DB, error) {

	// for in-memory test databases, check the necessary cached setting
	// is used.
	if strings.Contains(dbPath, ":memory:") && !strings.Contains(dbPath, "cache=shared") {
		return nil, fmt.Errorf("in-memory connection %q should contain '?cache=shared'", dbPath)
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dataSource := dbPath + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	dbDB, err := sql.Open("sqlite", dataSource)
	if err != nil {
		return nil, err
	}
	dbDB.SetMaxOpenConns(1)

	// RegisterFunctions registers the custom REGEXP function. This can
	// occur per call to "NewConnection" as it is a singleton using
	// sync.Once.
	RegisterFunctions()

	if err := dbDB.Ping(); err != nil {
		return nil, err
	}

	sqlFS, err := fs.Sub(sqlEmbeddedFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("could not mount sql fs: %w", err)
	}

	// Wrap the standard library *sql.DB with sqlx.
	db := &DB{
		DB:     sqlx.NewDb(dbDB, "sqlite"),
		logger: logger,
		sqlFS:  sqlFS,
	}

	// The schema can be applied idempotently on every startup.
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.prepareNamedStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not prepare named statements: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't already exist.
// The schema file can be run idempotently.
func (db *DB) InitSchema() error {

	schema, err := fs.ReadFile(db.sqlFS, schemaSQL)
	if err != nil {
		return fmt.Errorf("could not read schema file at %q: %w", schemaSQL, err)
	}

	_, err = db.ExecContext(context.Background(), string(schema))
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// prepareNamedStatements prepares all the named statements for this
// database connection.
func (db *DB) prepareNamedStatements() error {
	db.stmts = make(map[string]*parameterizedStmt, len(statementFiles))
	for _, filePath := range statementFiles {
		query, err := ParameterizeFile(db.sqlFS, filePath)
		if err != nil {
			return fmt.Errorf("could not parameterize %q: %w", filePath, err)
		}
		pQuery, err := db.PrepareNamed(string(query.Body))
		if err != nil {
			return fmt.Errorf("could not prepare statement %q: %w", filePath, err)
		}
		db.stmts[filePath] = &parameterizedStmt{
			filePath,
			query.Parameters,
			pQuery,
		}
	}
	return nil
}

// stmt retrieves a prepared statement by file name. All statements in
// statementFiles are prepared at connection time, so a missing entry
// is a programming error.
func (db *DB) stmt(name string) *parameterizedStmt {
	s, ok := db.stmts[name]
	if !ok {
		panic(fmt.Sprintf("statement %q has not been prepared", name))
	}
	return s
}

// withTx runs fn inside a database transaction, committing if fn
// returns nil and rolling back otherwise.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op after commit.

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// execStmt runs a prepared statement with the provided named args.
func (db *DB) execStmt(ctx context.Context, name string, args map[string]any) (sql.Result, error) {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return nil, err
	}
	res, err := stmt.ExecContext(ctx, args)
	db.logQuery(name, stmt, args, err)
	return res, err
}

// execTx runs a prepared statement bound to the given transaction.
func (db *DB) execTx(ctx context.Context, tx *sqlx.Tx, name string, args map[string]any) (sql.Result, error) {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return nil, err
	}
	res, err := stmt.bind(ctx, tx).ExecContext(ctx, args)
	db.logQuery(name, stmt, args, err)
	return res, err
}

// selectStmt scans the rows of a prepared statement into dest, a
// pointer to a slice.
func (db *DB) selectStmt(ctx context.Context, dest any, name string, args map[string]any) error {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return err
	}
	err := stmt.SelectContext(ctx, dest, args)
	db.logQuery(name, stmt, args, err)
	return err
}

// selectTx is selectStmt bound to the given transaction.
func (db *DB) selectTx(ctx context.Context, tx *sqlx.Tx, dest any, name string, args map[string]any) error {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return err
	}
	err := stmt.bind(ctx, tx).SelectContext(ctx, dest, args)
	db.logQuery(name, stmt, args, err)
	return err
}

// getStmt scans a single row of a prepared statement into dest,
// returning sql.ErrNoRows if no row matched.
func (db *DB) getStmt(ctx context.Context, dest any, name string, args map[string]any) error {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return err
	}
	err := stmt.GetContext(ctx, dest, args)
	if err != nil && err != sql.ErrNoRows {
		db.logQuery(name, stmt, args, err)
	}
	return err
}

// getTx is getStmt bound to the given transaction.
func (db *DB) getTx(ctx context.Context, tx *sqlx.Tx, dest any, name string, args map[string]any) error {
	stmt := db.stmt(name)
	if err := stmt.verifyArgs(args); err != nil {
		return err
	}
	err := stmt.bind(ctx, tx).GetContext(ctx, dest, args)
	if err != nil && err != sql.ErrNoRows {
		db.logQuery(name, stmt, args, err)
	}
	return err
}

// logQuery is for helping debug SQL issues.
func (db *DB) logQuery(name string, stmt *parameterizedStmt, args map[string]any, err error) {
	if err == nil {
		return
	}
	db.logger.Debug(
		"sql error",
		"statement", name,
		"query", stmt.QueryString,
		"args", fmt.Sprintf("%#v", args),
		"error", err,
	)
}
