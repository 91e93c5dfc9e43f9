package repository

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/surdiana/authd/internal/errors"
)

// classify maps driver errors onto the domain taxonomy. Unique violations are
// the conflict outcome, never an infrastructure failure; connectivity trouble
// becomes the retryable ErrStoreUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.WrapError(apperrors.ErrConflict, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return apperrors.WrapError(apperrors.ErrConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			pgErr.Code == "57P01", // admin_shutdown
			pgErr.Code == "53300": // too_many_connections
			return apperrors.WrapError(apperrors.ErrStoreUnavailable, err)
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.WrapError(apperrors.ErrStoreUnavailable, err)
	}

	return apperrors.WrapError(apperrors.ErrInternal, err)
}
