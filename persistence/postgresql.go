// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(cfg config.PostgresConfig) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

const (
	createRoomRecords = `
        CREATE TABLE IF NOT EXISTS room_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(32) NOT NULL,
            opened_at TIMESTAMPTZ NOT NULL,
            closed_at TIMESTAMPTZ NOT NULL,
            peak_players INT NOT NULL DEFAULT 0,
            total_joins INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`
	createSessionRecords = `
        CREATE TABLE IF NOT EXISTS session_records (
            id SERIAL PRIMARY KEY,
            connection_id VARCHAR(64) NOT NULL,
            room_id VARCHAR(32) NOT NULL,
            username VARCHAR(255) NOT NULL,
            sprite VARCHAR(64) NOT NULL,
            last_scene VARCHAR(255),
            joined_at TIMESTAMPTZ NOT NULL,
            left_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )`
	createIndexes = `
        CREATE INDEX IF NOT EXISTS idx_room_records_room_id ON room_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_session_records_room_id ON session_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_session_records_connection_id ON session_records(connection_id);`

	insertRoomRecord = `
        INSERT INTO room_records (room_id, opened_at, closed_at, peak_players, total_joins)
        VALUES ($1, $2, $3, $4, $5)`
	insertSessionRecord = `
        INSERT INTO session_records (connection_id, room_id, username, sprite, last_scene, joined_at, left_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range []string{createRoomRecords, createSessionRecords, createIndexes} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRoomRecord 保存房间记录
func (p *PostgreSQL) SaveRoomRecord(ctx context.Context, r models.RoomRecord) error {
	_, err := p.db.ExecContext(ctx, insertRoomRecord,
		r.RoomID, r.CreatedAt, r.ClosedAt, r.PeakPlayers, r.TotalJoins)
	return err
}

// SaveSessionRecord 保存玩家停留记录
func (p *PostgreSQL) SaveSessionRecord(ctx context.Context, r models.SessionRecord) error {
	_, err := p.db.ExecContext(ctx, insertSessionRecord,
		r.ConnectionID, r.RoomID, r.Username, r.Sprite, r.LastScene, r.JoinedAt, r.LeftAt)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
