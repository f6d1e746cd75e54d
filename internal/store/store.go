// 包 store：签名记录的 PostgreSQL 读写
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"geohash-signature/internal/logger"
	"geohash-signature/internal/signature"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("signature not found")

// Record：一次生成的持久化结果；签名以压缩形式存储
type Record struct {
	ID          uuid.UUID
	ShapeKey    string
	Level       int
	Relations   []string
	Partitioned bool
	Signature   signature.Compressed
	CreatedAt   time.Time
}

type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Save：写入记录；ID 为空时生成 UUID，CreatedAt 为空时取当前时间
func (s *Store) Save(ctx context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	suffixes := r.Signature.Suffixes
	if suffixes == nil {
		suffixes = []string{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geosig_signatures(id, shape_key, level, relations, partitioned, prefix, suffixes, cell_count, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.ShapeKey, r.Level, joinRelations(r.Relations), r.Partitioned,
		r.Signature.Prefix, pq.Array(suffixes), len(suffixes), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save signature: %w", err)
	}
	logger.L().Debug("db_signature_saved", "id", r.ID.String(), "cells", len(suffixes))
	return nil
}

const selectRecord = `SELECT id, shape_key, level, relations, partitioned, prefix, suffixes, created_at FROM geosig_signatures`

// Get：按 ID 读取；不存在返回 ErrNotFound
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectRecord+` WHERE id=$1`, id))
}

// FindLatest：同一形状、级别与关系下最近的一条记录
func (s *Store) FindLatest(ctx context.Context, shapeKey string, level int, relations []string) (*Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		selectRecord+` WHERE shape_key=$1 AND level=$2 AND relations=$3 ORDER BY created_at DESC LIMIT 1`,
		shapeKey, level, joinRelations(relations)))
}

func (s *Store) scanOne(row *sql.Row) (*Record, error) {
	var (
		r    Record
		rels string
	)
	err := row.Scan(&r.ID, &r.ShapeKey, &r.Level, &rels, &r.Partitioned,
		&r.Signature.Prefix, pq.Array(&r.Signature.Suffixes), &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.Signature.Suffixes == nil {
		r.Signature.Suffixes = []string{}
	}
	r.Relations = splitRelations(rels)
	return &r, nil
}

func joinRelations(rs []string) string { return strings.Join(rs, ",") }

func splitRelations(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
