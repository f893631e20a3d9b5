// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"io"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/roomserver/config"
	"github.com/wfunc/roomserver/logger"
	"github.com/wfunc/roomserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// zapWriter routes gorm's log lines into the process logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Infof(format, args...)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(cfg config.PostgresConfig) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := gormlogger.New(
		zapWriter{},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		closeConnPool(db)
		return nil, err
	}
	return newGormRecorder(db, autoMigrate)
}

// newGormRecorder 设置连接池并迁移表结构，失败时关闭连接池
func newGormRecorder(db *gorm.DB, migrate func(*gorm.DB) error) (*GormPostgreSQL, error) {
	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		closeConnPool(db)
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func closeConnPool(db *gorm.DB) {
	if db == nil {
		return
	}
	if c, ok := db.ConnPool.(io.Closer); ok {
		c.Close()
	}
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoomRecord{},
		&models.GormSessionRecord{},
	)
}

// SaveRoomRecord 保存房间记录
func (p *GormPostgreSQL) SaveRoomRecord(ctx context.Context, record models.RoomRecord) error {
	row := models.NewGormRoomRecord(record)
	return p.db.WithContext(ctx).Create(&row).Error
}

// SaveSessionRecord 保存玩家停留记录
func (p *GormPostgreSQL) SaveSessionRecord(ctx context.Context, record models.SessionRecord) error {
	row := models.NewGormSessionRecord(record)
	return p.db.WithContext(ctx).Create(&row).Error
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
