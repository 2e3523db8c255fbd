package db

import (
	"context"
	"database/sql"
	"fmt"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every statement the application runs. It is bound either to
// the connection pool or to a single transaction.
type Queries struct {
	q       querier
	dialect dialect
}

type DB struct {
	*sql.DB
	*Queries
}

func Init(driver, dsn string) (*DB, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}

	if d.singleWriter {
		// SQLite serializes writers anyway; one connection also keeps the
		// foreign_keys pragma in effect for every statement.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	for _, stmt := range d.connInit {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure connection: %w", err)
		}
	}

	return &DB{DB: db, Queries: &Queries{q: db, dialect: d}}, nil
}

// Dialect returns the configured driver name.
func (db *DB) Dialect() string {
	return db.dialect.name
}

// InTx runs fn inside one transaction, committing when fn returns nil.
func (db *DB) InTx(ctx context.Context, fn func(*Queries) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&Queries{q: tx, dialect: db.dialect}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := q.q.ExecContext(ctx, q.dialect.rebind(query), args...)
	return res, translate(err)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := q.q.QueryContext(ctx, q.dialect.rebind(query), args...)
	return rows, translate(err)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}
