// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paihu/paihu/internal/config"
	"github.com/paihu/paihu/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// slowQueryThreshold 慢SQL告警阈值
const slowQueryThreshold = 100 * time.Millisecond

// connectTimeout 启动时连接测试的超时
const connectTimeout = 5 * time.Second

// DB 数据库连接封装
// 在 *sql.DB 之上叠加慢SQL告警与事务辅助
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 建立连接池并验证连通性
func New(cfg *config.DatabaseConfig) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: pool, cfg: cfg}, nil
}

// Close 关闭连接池
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	logger.Info().Msg("关闭数据库连接")
	return db.DB.Close()
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 在单个事务内执行 fn
// fn 返回错误或 panic 时回滚，否则提交
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// ExecContext 执行SQL语句，超过阈值记录慢SQL
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	warnIfSlow(query, start)
	return result, err
}

// QueryContext 执行查询，超过阈值记录慢SQL
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	warnIfSlow(query, start)
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func warnIfSlow(query string, start time.Time) {
	duration := time.Since(start)
	if duration <= slowQueryThreshold {
		return
	}
	if len(query) > 200 {
		query = query[:200] + "..."
	}
	logger.Warn().
		Str("query", query).
		Dur("duration", duration).
		Msg("慢SQL查询")
}
