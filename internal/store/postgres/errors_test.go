package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"boardsync/internal/domain"
)

func TestClassifyNil(t *testing.T) {
	if err := classify(nil, "op"); err != nil {
		t.Fatalf("classify(nil) = %v", err)
	}
}

func TestClassifyDuplicateKeyIsConflict(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "test_boards_pkey"}
	err := classify(fmt.Errorf("set document: %w", pgErr), "set document")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestClassifyDeadlineIsTransient(t *testing.T) {
	err := classify(fmt.Errorf("query: %w", context.DeadlineExceeded), "query documents")
	if !domain.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestClassifyOtherErrorsPassThrough(t *testing.T) {
	orig := errors.New("syntax error")
	if err := classify(orig, "query documents"); !errors.Is(err, orig) {
		t.Fatalf("err = %v, want the original error unchanged", err)
	}
	// Non-retryable pg errors stay terminal, not transient.
	pgErr := &pgconn.PgError{Code: "42P01"}
	if err := classify(pgErr, "query documents"); domain.IsTransient(err) {
		t.Fatal("undefined-table error classified as transient")
	}
}

func TestIsPgNoRowsError(t *testing.T) {
	if !isPgNoRowsError(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if isPgNoRowsError(errors.New("other")) {
		t.Fatal("unrelated error detected as no-rows")
	}
}
