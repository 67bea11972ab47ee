package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

// IsTransient reports whether err is a fault worth retrying: lost
// connections, serialization failures, exhausted resources and server
// shutdowns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "40"),  // transaction rollback
			strings.HasPrefix(pgErr.Code, "53"),  // insufficient resources
			strings.HasPrefix(pgErr.Code, "57P"): // operator intervention
			return true
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err)
}

// scoreError maps a driver error onto the trending error contract.
func scoreError(op string, postID int, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return trending.ErrPostNotFound
	case IsTransient(err):
		return fmt.Errorf("%s post %d: %w: %w", op, postID, trending.ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%s post %d: %w", op, postID, err)
	}
}
