package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/fanout-engine/config"
	"github.com/d60-Lab/fanout-engine/internal/model"
)

// InitDB 按配置初始化 gorm（postgres 生产 / sqlite 本地与测试）
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 建表（测试里对 :memory: 库复用）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Identity{},
		&model.Post{},
		&model.PostInteraction{},
		&model.Follow{},
		&model.Fan{},
		&model.FanOut{},
		&model.TimelineEvent{},
	)
}
