package notification

import "context"

// Sender 把一条文本发到某个聊天, chatId 可以是数字 id 或 @channel
type Sender interface {
	Send(ctx context.Context, chatId string, text string) error
}
