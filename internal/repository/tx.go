package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return wrapStoreErr(err)
	}

	err = fn(tx)
	if err == nil {
		return wrapStoreErr(tx.Commit(ctx))
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}

// wrapStoreErr marks transient infrastructure failures as
// domain.ErrStoreUnavailable so callers can retry with backoff instead of
// mistaking them for conflicts.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	case errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code):
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return err
}
