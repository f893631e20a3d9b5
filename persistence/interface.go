// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/models"
)

// Recorder 房间历史存储接口。只写入，从不用于恢复房间。
type Recorder interface {
	SaveRoomRecord(ctx context.Context, record models.RoomRecord) error
	SaveSessionRecord(ctx context.Context, record models.SessionRecord) error
	Close() error
}

// 错误定义
var (
	ErrUnknownDriver = fmt.Errorf("unknown database driver")
)

// Noop discards every record.
type Noop struct{}

func (Noop) SaveRoomRecord(context.Context, models.RoomRecord) error       { return nil }
func (Noop) SaveSessionRecord(context.Context, models.SessionRecord) error { return nil }
func (Noop) Close() error                                                  { return nil }

// Open connects the recorder selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Recorder, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres)
	case "sql":
		return NewPostgreSQL(cfg.Postgres)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func dsn(cfg config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
}
