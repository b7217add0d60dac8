package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ApplyDDL выполняет инструкции по порядку. Ожидается idempotent DDL (create ... if not exists).
func ApplyDDL(ctx context.Context, db *sql.DB, stmts []string, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, stmt := range stmts {
		sqlText := strings.TrimSpace(stmt)
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			// duplicate_object (42710) / duplicate_table (42P07)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && (pgErr.Code == "42710" || pgErr.Code == "42P07") {
				log.Info("DDL skipped (already exists)", "code", pgErr.Code, "msg", strings.TrimSpace(pgErr.Message))
				continue
			}
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	return nil
}
