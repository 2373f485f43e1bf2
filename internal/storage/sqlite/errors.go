package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/extended-memory/mcp-storage/internal/memerr"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows into memerr.ErrNotFound for consistent handling.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, memerr.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
