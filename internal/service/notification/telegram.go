package notification

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender 通过 bot api 发送消息
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// NewTextMessage 数字 id 发给用户或群, 否则按频道用户名发送
func NewTextMessage(chatId string, text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatId, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatId, text)
	}
	msg.DisableWebPagePreview = true
	return msg
}

func (s *TelegramSender) Send(ctx context.Context, chatId string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.api.Send(NewTextMessage(chatId, text))
	return err
}
