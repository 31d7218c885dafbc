package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/KNICEX/trader-watcher/internal/config"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/schedule"
	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"github.com/KNICEX/trader-watcher/internal/service/notification"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdatesSource 长轮询拉取 telegram 更新, *tgbotapi.BotAPI 即满足
type UpdatesSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Command 一条解析后的命令
type Command struct {
	ChatId   int64
	UserId   int64 // telegram 用户 id
	Username string
	Name     string
	Args     []string
}

// Bot 处理用户和管理员命令: 订阅地址, 通知偏好, 审批
type Bot struct {
	cfg     config.TelegramConfig
	updates UpdatesSource
	sender  notification.Sender
	users   repo.UserRepo
	subs    repo.SubscriptionRepo
	traders repo.TraderRepo
	history exchange.HistoryService
	logger  *zap.Logger
}

var _ schedule.Task = (*Bot)(nil)

func NewBot(cfg config.TelegramConfig, updates UpdatesSource, sender notification.Sender,
	users repo.UserRepo, subs repo.SubscriptionRepo, traders repo.TraderRepo,
	history exchange.HistoryService, logger *zap.Logger) *Bot {
	return &Bot{
		cfg:     cfg,
		updates: updates,
		sender:  sender,
		users:   users,
		subs:    subs,
		traders: traders,
		history: history,
		logger:  logger.Named("bot"),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.updates.GetUpdatesChan(u)
	defer b.updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}
			b.onMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) Name() string {
	return "telegram bot task"
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd := Command{
		ChatId:   msg.Chat.ID,
		UserId:   msg.From.ID,
		Username: msg.From.UserName,
		Name:     strings.ToLower(msg.Command()),
		Args:     strings.Fields(msg.CommandArguments()),
	}
	reply := b.Handle(ctx, cmd)
	if reply == "" {
		return
	}
	if err := b.sender.Send(ctx, strconv.FormatInt(cmd.ChatId, 10), reply); err != nil {
		b.logger.Warn("reply failed", zap.Int64("chat_id", cmd.ChatId), zap.String("command", cmd.Name), zap.Error(err))
	}
}

// Handle 执行命令并返回回复文本
func (b *Bot) Handle(ctx context.Context, cmd Command) string {
	reply, err := b.handle(ctx, cmd)
	if err != nil {
		b.logger.Error("handle command failed", zap.String("command", cmd.Name),
			zap.Int64("user_id", cmd.UserId), zap.Error(err))
		return "Something went wrong, please try again later."
	}
	return reply
}

func (b *Bot) handle(ctx context.Context, cmd Command) (string, error) {
	if cmd.Name == "start" {
		return b.start(ctx, cmd)
	}

	user, ok, err := b.approvedUser(ctx, cmd.UserId)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgNoAccess, nil
	}

	switch cmd.Name {
	case "help", "menu":
		return helpText(user.IsAdmin), nil
	case "add":
		return b.add(ctx, user, cmd.Args)
	case "remove":
		return b.remove(ctx, user, cmd.Args)
	case "list":
		return b.list(ctx, user)
	case "alerts":
		return alertsText(user), nil
	case "toggle":
		return b.toggle(ctx, user, cmd.Args)
	case "channel":
		return b.channel(ctx, user, cmd.Args)
	case "ledger":
		return b.ledger(ctx, cmd.Args)
	}

	if !user.IsAdmin {
		return msgUnknown, nil
	}
	switch cmd.Name {
	case "pending":
		return b.pending(ctx)
	case "approve":
		return b.setStatus(ctx, cmd.Args, true)
	case "block":
		return b.setStatus(ctx, cmd.Args, false)
	}
	return msgUnknown, nil
}
