package ioc

import (
	"github.com/KNICEX/trader-watcher/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InitTelegram token 为空时返回 nil, 只打日志不推送
func InitTelegram(cfg config.TelegramConfig) *tgbotapi.BotAPI {
	if cfg.Token == "" {
		return nil
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		panic(err)
	}
	return api
}
