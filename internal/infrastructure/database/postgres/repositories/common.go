// Package repositories implements the domain repositories on PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/turtacn/flame-data/internal/domain/identity"
	"github.com/turtacn/flame-data/internal/infrastructure/database/postgres"
	"github.com/turtacn/flame-data/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const uniqueViolation = "23505"

// withTx runs fn in a transaction. Any error from fn, or a panic, rolls the
// transaction back.
func withTx(ctx context.Context, conn *postgres.Connection, fn func(queryExecutor) error) (err error) {
	tx, err := conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// lockKey takes a transaction-scoped advisory lock on key. Concurrent
// inserts of the same connectivity serialise here.
func lockKey(ctx context.Context, ex queryExecutor, key string) error {
	if _, err := ex.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to acquire advisory lock")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func dbError(err error, message string) error {
	return errors.Wrap(err, errors.ErrCodeDatabaseError, message)
}

// mustAffect turns a zero-row update or delete into err.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// formulaClause builds the WHERE clause of a formula search against column.
// An exact search matches the canonical formula string. A partial search
// requires every element of the filter formula with its exact count.
func formulaClause(column string, filter identity.FormulaFilter) (string, []interface{}, error) {
	if strings.TrimSpace(filter.Formula) == "" {
		return "", nil, nil
	}
	fml, err := identity.ParseFormula(filter.Formula)
	if err != nil {
		return "", nil, err
	}
	if !filter.Partial {
		return fmt.Sprintf(" WHERE %s = $1", column), []interface{}{fml.String()}, nil
	}

	patterns := fml.PartialMatchPatterns()
	conds := make([]string, len(patterns))
	args := make([]interface{}, len(patterns))
	for i, p := range patterns {
		conds[i] = fmt.Sprintf("%s ~ $%d", column, i+1)
		args[i] = p
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
