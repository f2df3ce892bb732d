package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"boardsync/internal/domain"
)

// isPgNoRowsError checks if error is a "no rows" error
func isPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isPgDuplicateError checks if error is a unique constraint violation
func isPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// classify maps store failures onto the domain taxonomy: unique
// constraint violations become conflicts, connectivity-class failures
// become domain.TransientError so the sync engine treats them as
// retryable. Every other error passes through unchanged.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if isPgDuplicateError(err) {
		return &domain.ConflictError{Message: message + ": duplicate key"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		pgconn.SafeToRetry(err) ||
		pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransientError{Message: message, Cause: err}
	}
	return err
}
