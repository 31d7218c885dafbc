package ioc

import (
	"os"
	"path/filepath"

	"github.com/KNICEX/trader-watcher/internal/config"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg config.DBConfig) *gorm.DB {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
	}

	dsn := cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}

	// sqlite 单写者, 游标写入串行化
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}
