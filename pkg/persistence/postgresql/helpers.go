package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
)

// clampPage normalizes pagination inputs: 1-indexed page, limit defaulted to
// 20 and capped at 100.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}

	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// totalPages is ceil(total/limit).
func totalPages(total int64, limit int) int {
	if total == 0 {
		return 0
	}

	return int((total + int64(limit) - 1) / int64(limit))
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
