package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	perrors "github.com/yungbote/fred-backend/internal/pkg/errors"
)

var (
	// ErrConflict indicates a uniqueness or concurrency conflict.
	ErrConflict = errors.New("db conflict")
	// ErrRetryable indicates a transient failure worth one more attempt.
	ErrRetryable = errors.New("db retryable")
)

// Classify maps driver failures onto ErrConflict, ErrRetryable, or pkg/errors.ErrNotFound.
// Unknown errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, ErrRetryable), errors.Is(err, perrors.ErrNotFound):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(perrors.ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return errors.Join(ErrConflict, err)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return errors.Join(ErrRetryable, err)
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint failed"):
		return errors.Join(ErrConflict, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"):
		return errors.Join(ErrRetryable, err)
	default:
		return err
	}
}

func IsRetryable(err error) bool { return errors.Is(Classify(err), ErrRetryable) }

func IsConflict(err error) bool { return errors.Is(Classify(err), ErrConflict) }

// RetryOnce runs fn again when its first failure is retryable.
func RetryOnce(fn func() error) error {
	err := fn()
	if err == nil || !IsRetryable(err) {
		return err
	}
	return fn()
}
