package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/service/monitor"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Dispatcher 把某个地址的事件发给它的所有订阅者
// 只发给已审批且开启了该类别的用户, 单个用户发送失败不影响其它用户
type Dispatcher struct {
	subs   repo.SubscriptionRepo
	sender Sender
	logger *zap.Logger
}

var _ monitor.Notifier = (*Dispatcher)(nil)

func NewDispatcher(subs repo.SubscriptionRepo, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		subs:   subs,
		sender: sender,
		logger: logger.Named("dispatcher"),
	}
}

func (d *Dispatcher) Deliver(ctx context.Context, traderId int64, text string, category string) error {
	users, err := d.subs.ListSubscribers(ctx, traderId)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	recipients := lo.Filter(users, func(u entity.User, _ int) bool {
		return u.Status == entity.UserStatusApproved && u.AlertEnabled(category)
	})

	var errs []error
	for _, u := range recipients {
		target := u.DeliveryTarget()
		if err := d.sender.Send(ctx, target, text); err != nil {
			d.logger.Warn("send notification failed", zap.Int64("trader_id", traderId),
				zap.Int64("telegram_id", u.TelegramId), zap.String("target", target),
				zap.String("mode", u.DeliveryMode), zap.Error(err))
			errs = append(errs, fmt.Errorf("send to %s: %w", target, err))
		}
	}
	return errors.Join(errs...)
}
