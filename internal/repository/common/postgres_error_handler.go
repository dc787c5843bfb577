package common

import (
	"errors"
	"strings"

	apperrors "github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// HandlePostgreSQLError converts PostgreSQL-specific errors to appropriate AppError codes
func HandlePostgreSQLError(err error, operation string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperrors.Wrap(err, apperrors.CodeInternal, operation)
	}

	switch pgErr.Code {
	case "23505": // UNIQUE_VIOLATION
		return handleUniqueViolation(pgErr, operation)

	case "23503": // FOREIGN_KEY_VIOLATION
		return handleForeignKeyViolation(pgErr, operation)

	case "23502": // NOT_NULL_VIOLATION
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, operation+": required field is missing")

	case "23514": // CHECK_VIOLATION
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, operation+": data violates check constraint")

	case "22P02": // INVALID_TEXT_REPRESENTATION, e.g. malformed raw metadata JSON
		return apperrors.Wrap(err, apperrors.CodeInvalidArg, operation+": invalid input syntax")

	case "42P01", "42703": // UNDEFINED_TABLE, UNDEFINED_COLUMN
		return apperrors.Wrap(err, apperrors.CodeInternal, "database schema error, run 'shortstrend migrate up'")

	case "08000", "08003", "08006": // CONNECTION_EXCEPTION variants
		return apperrors.Wrap(err, apperrors.CodeInternal, "database connection error")

	case "53300": // TOO_MANY_CONNECTIONS
		return apperrors.Wrap(err, apperrors.CodeInternal, "database connection limit reached")

	default:
		message := operation + " (PostgreSQL code: " + pgErr.Code + ")"
		return apperrors.Wrap(err, apperrors.CodeInternal, message)
	}
}

func handleUniqueViolation(pgErr *pgconn.PgError, operation string) *apperrors.AppError {
	constraintName := pgErr.ConstraintName

	switch {
	case strings.Contains(constraintName, "channels_handle"):
		return apperrors.Wrap(pgErr, apperrors.CodeConflict, "channel with this handle already exists")
	case strings.Contains(constraintName, "channels_channel_id"):
		return apperrors.Wrap(pgErr, apperrors.CodeConflict, "channel with this ID already exists")
	case strings.Contains(constraintName, "keyword_rankings"):
		return apperrors.Wrap(pgErr, apperrors.CodeConflict, "ranking for this date already exists")
	default:
		return apperrors.Wrap(pgErr, apperrors.CodeConflict, operation+": resource already exists")
	}
}

func handleForeignKeyViolation(pgErr *pgconn.PgError, operation string) *apperrors.AppError {
	constraintName := pgErr.ConstraintName

	switch {
	case strings.Contains(constraintName, "channel_id"):
		return apperrors.Wrap(pgErr, apperrors.CodeDependency, "referenced channel does not exist")
	case strings.Contains(constraintName, "video_id"):
		return apperrors.Wrap(pgErr, apperrors.CodeDependency, "referenced video does not exist")
	case strings.Contains(constraintName, "keyword_id"):
		return apperrors.Wrap(pgErr, apperrors.CodeDependency, "referenced keyword does not exist")
	default:
		return apperrors.Wrap(pgErr, apperrors.CodeDependency, operation+": referenced resource does not exist")
	}
}
