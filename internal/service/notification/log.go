package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender 未配置 telegram 时只打日志
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log_sender")}
}

func (s *LogSender) Send(ctx context.Context, chatId string, text string) error {
	s.logger.Info("notify", zap.String("chat_id", chatId), zap.String("text", text))
	return nil
}
