package repo

import (
	"github.com/KNICEX/trader-watcher/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.User{}, &entity.Trader{}, &entity.UserTrader{}, &entity.TraderState{})
}
