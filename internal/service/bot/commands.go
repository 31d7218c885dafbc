package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/service/monitor"
	"github.com/KNICEX/trader-watcher/internal/service/notification"
	"github.com/KNICEX/trader-watcher/pkg/decimalx"
	"go.uber.org/zap"
)

const (
	msgNoAccess = "No access. Send /start and wait for approval."
	msgPending  = "Access is granted by administrators. Your request has been recorded, please wait."
	msgBlocked  = "Access denied."
	msgUnknown  = "Unknown command. Send /help for the list of commands."

	ledgerLimit = 10
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func helpText(isAdmin bool) string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	sb.WriteString("/add <address> - watch a trader\n")
	sb.WriteString("/remove <address> - stop watching\n")
	sb.WriteString("/list - watched traders\n")
	sb.WriteString("/ledger <address> - recent deposits, withdrawals and liquidations\n")
	sb.WriteString("/alerts - alert settings\n")
	sb.WriteString("/toggle <positions|liquidation|deposit|withdraw> - switch an alert category\n")
	sb.WriteString("/channel [@channel|off] - deliver alerts to a channel or back to this chat")
	if isAdmin {
		sb.WriteString("\n\nAdmin:\n")
		sb.WriteString("/pending - access requests\n")
		sb.WriteString("/approve <telegram id>\n")
		sb.WriteString("/block <telegram id>")
	}
	return sb.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func alertsText(u entity.User) string {
	target := "this chat"
	if u.DeliveryMode == entity.DeliveryModeChannel && u.DeliveryChatId != "" {
		target = u.DeliveryChatId
	}
	return fmt.Sprintf("Alerts:\npositions: %s\nliquidation: %s\ndeposit: %s\nwithdraw: %s\ndelivery: %s",
		onOff(u.AlertPositions), onOff(u.AlertLiquidations), onOff(u.AlertDeposits), onOff(u.AlertWithdrawals), target)
}

// approvedUser 用户存在且已审批
func (b *Bot) approvedUser(ctx context.Context, telegramId int64) (entity.User, bool, error) {
	user, err := b.users.FindByTelegramId(ctx, telegramId)
	if errors.Is(err, repo.ErrUserNotFound) {
		return entity.User{}, false, nil
	}
	if err != nil {
		return entity.User{}, false, err
	}
	return user, user.Status == entity.UserStatusApproved, nil
}

func (b *Bot) start(ctx context.Context, cmd Command) (string, error) {
	user, err := b.users.GetOrCreate(ctx, cmd.UserId, cmd.Username)
	if err != nil {
		return "", err
	}

	// 配置中的管理员自动审批
	if b.cfg.IsAdmin(cmd.UserId) {
		if !user.IsAdmin {
			if err := b.users.SetAdmin(ctx, cmd.UserId, true); err != nil {
				return "", err
			}
			user.IsAdmin = true
		}
		if user.Status != entity.UserStatusApproved {
			if err := b.users.SetStatus(ctx, cmd.UserId, entity.UserStatusApproved); err != nil {
				return "", err
			}
			user.Status = entity.UserStatusApproved
		}
	}

	switch user.Status {
	case entity.UserStatusApproved:
		return helpText(user.IsAdmin), nil
	case entity.UserStatusBlocked:
		return msgBlocked, nil
	}

	username := cmd.Username
	if username == "" {
		username = "—"
	}
	notice := fmt.Sprintf("New access request: @%s (id=%d)\n/approve %d", username, cmd.UserId, cmd.UserId)
	for _, adminId := range b.cfg.Admins {
		if err := b.sender.Send(ctx, strconv.FormatInt(adminId, 10), notice); err != nil {
			b.logger.Warn("notify admin failed", zap.Int64("admin_id", adminId), zap.Error(err))
		}
	}
	return msgPending, nil
}

func parseAddress(args []string) (string, bool) {
	if len(args) != 1 || !addressRe.MatchString(args[0]) {
		return "", false
	}
	return repo.NormalizeAddress(args[0]), true
}

func (b *Bot) add(ctx context.Context, user entity.User, args []string) (string, error) {
	address, ok := parseAddress(args)
	if !ok {
		return "Usage: /add 0x... (40 hex characters)", nil
	}
	if _, err := b.subs.Subscribe(ctx, user.Id, address); err != nil {
		return "", err
	}
	return fmt.Sprintf("Watching %s. Alerts start after the first poll records its current state.",
		notification.ShortAddress(address)), nil
}

func (b *Bot) remove(ctx context.Context, user entity.User, args []string) (string, error) {
	address, ok := parseAddress(args)
	if !ok {
		return "Usage: /remove 0x...", nil
	}
	err := b.subs.Unsubscribe(ctx, user.Id, address)
	if errors.Is(err, repo.ErrTraderNotFound) {
		return fmt.Sprintf("%s is not being watched.", notification.ShortAddress(address)), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Stopped watching %s.", notification.ShortAddress(address)), nil
}

func (b *Bot) list(ctx context.Context, user entity.User) (string, error) {
	traders, err := b.subs.ListByUser(ctx, user.Id)
	if err != nil {
		return "", err
	}
	if len(traders) == 0 {
		return "You are not watching any trader. Use /add <address>.", nil
	}

	var sb strings.Builder
	sb.WriteString("Watched traders:")
	for _, t := range traders {
		value := "—"
		cursor, err := b.traders.LoadCursor(ctx, t.Id)
		if err != nil {
			return "", err
		}
		if cursor.LastAccountValue != nil {
			if v := decimalx.FloatPtr(*cursor.LastAccountValue); v != nil {
				value = decimalx.FormatUSD(*v)
			}
		}
		fmt.Fprintf(&sb, "\n%s  %s", t.Address, value)
	}
	return sb.String(), nil
}

func (b *Bot) toggle(ctx context.Context, user entity.User, args []string) (string, error) {
	if len(args) != 1 {
		return "Usage: /toggle <positions|liquidation|deposit|withdraw>", nil
	}
	category := strings.ToLower(args[0])
	enabled, err := b.users.ToggleAlert(ctx, user.TelegramId, category)
	if errors.Is(err, repo.ErrUnknownCategory) {
		return "Usage: /toggle <positions|liquidation|deposit|withdraw>", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s alerts: %s", category, onOff(enabled)), nil
}

func (b *Bot) channel(ctx context.Context, user entity.User, args []string) (string, error) {
	if len(args) == 0 {
		if user.DeliveryMode == entity.DeliveryModeChannel && user.DeliveryChatId != "" {
			return fmt.Sprintf("Alerts go to %s. Send /channel off to receive them here.", user.DeliveryChatId), nil
		}
		return "Alerts go to this chat. Send /channel @channel to deliver them to a channel where the bot is an admin.", nil
	}

	target := args[0]
	if strings.EqualFold(target, "off") {
		target = ""
	} else if !strings.HasPrefix(target, "@") {
		if _, err := strconv.ParseInt(target, 10, 64); err != nil {
			return "Usage: /channel @channel, /channel -100123456 or /channel off", nil
		}
	}
	if err := b.users.SetDeliveryChannel(ctx, user.TelegramId, target); err != nil {
		return "", err
	}
	if target == "" {
		return "Alerts will be delivered to this chat.", nil
	}
	return fmt.Sprintf("Alerts will be delivered to %s.", target), nil
}

func (b *Bot) ledger(ctx context.Context, args []string) (string, error) {
	address, ok := parseAddress(args)
	if !ok {
		return "Usage: /ledger 0x...", nil
	}
	updates, err := b.history.GetRecentLedgerUpdates(ctx, address, ledgerLimit)
	if err != nil {
		return "", err
	}
	who := notification.ShortAddress(address)
	if len(updates) == 0 {
		return fmt.Sprintf("History of %s: no ledger updates in the last 30 days.", who), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "History of %s:", who)
	for _, u := range updates {
		ts := time.UnixMilli(u.Time).UTC().Format("2006-01-02 15:04 UTC")
		kind := monitor.ClassifyLedger(u.Tag())
		label := u.Tag()
		if kind != monitor.LedgerIgnore {
			label = string(kind)
		}
		fmt.Fprintf(&sb, "\n%s  %s  %s", ts, label, strings.TrimSpace(u.AmountText()+" "+u.Asset()))
	}
	return sb.String(), nil
}

func (b *Bot) pending(ctx context.Context) (string, error) {
	users, err := b.users.ListPending(ctx)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "No pending requests.", nil
	}
	var sb strings.Builder
	sb.WriteString("Pending requests:")
	for _, u := range users {
		name := u.Username
		if name == "" {
			name = "—"
		}
		fmt.Fprintf(&sb, "\n@%s id=%d  /approve %d", name, u.TelegramId, u.TelegramId)
	}
	return sb.String(), nil
}

func (b *Bot) setStatus(ctx context.Context, args []string, approve bool) (string, error) {
	usage := "Usage: /block <telegram id>"
	status := entity.UserStatusBlocked
	if approve {
		usage = "Usage: /approve <telegram id>"
		status = entity.UserStatusApproved
	}
	if len(args) != 1 {
		return usage, nil
	}
	telegramId, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usage, nil
	}

	err = b.users.SetStatus(ctx, telegramId, status)
	if errors.Is(err, repo.ErrUserNotFound) {
		return fmt.Sprintf("User %d not found.", telegramId), nil
	}
	if err != nil {
		return "", err
	}

	if approve {
		if err := b.sender.Send(ctx, strconv.FormatInt(telegramId, 10), "Access granted.\n\n"+helpText(false)); err != nil {
			b.logger.Warn("notify approved user failed", zap.Int64("telegram_id", telegramId), zap.Error(err))
		}
	}
	return fmt.Sprintf("User %d is now %s.", telegramId, status), nil
}
