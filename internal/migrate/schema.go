package migrate

import (
	"context"
	"database/sql"

	"geohash-signature/internal/logger"
)

// Statements：签名持久化所需的表与索引，全部可重复执行
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS geosig_signatures (
		id UUID PRIMARY KEY,
		shape_key TEXT NOT NULL,
		level INT NOT NULL,
		relations TEXT NOT NULL,
		partitioned BOOLEAN NOT NULL DEFAULT FALSE,
		prefix TEXT NOT NULL,
		suffixes TEXT[] NOT NULL,
		cell_count INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_geosig_signatures_lookup
		ON geosig_signatures(shape_key, level, relations, created_at DESC)`,
}

// EnsureSchema：首次运行时创建表结构
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
