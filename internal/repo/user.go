package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUnknownCategory = errors.New("unknown alert category")
)

type UserRepo interface {
	GetOrCreate(ctx context.Context, telegramId int64, username string) (entity.User, error)
	FindByTelegramId(ctx context.Context, telegramId int64) (entity.User, error)
	SetStatus(ctx context.Context, telegramId int64, status string) error
	SetAdmin(ctx context.Context, telegramId int64, isAdmin bool) error
	ListPending(ctx context.Context) ([]entity.User, error)
	// SetDeliveryChannel chatId 为空时切回私聊
	SetDeliveryChannel(ctx context.Context, telegramId int64, chatId string) error
	// ToggleAlert 切换类别开关, 返回切换后的值
	ToggleAlert(ctx context.Context, telegramId int64, category string) (bool, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) GetOrCreate(ctx context.Context, telegramId int64, username string) (entity.User, error) {
	db := r.db.WithContext(ctx)
	// 并发 /start 时依赖唯一索引兜底
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.User{TelegramId: telegramId, Username: username}).Error
	if err != nil {
		return entity.User{}, err
	}

	var user entity.User
	if err := db.Where("telegram_id = ?", telegramId).First(&user).Error; err != nil {
		return entity.User{}, err
	}
	if username != "" && user.Username != username {
		if err := db.Model(&user).Update("username", username).Error; err != nil {
			return entity.User{}, err
		}
		user.Username = username
	}
	return user, nil
}

func (r *userRepo) FindByTelegramId(ctx context.Context, telegramId int64) (entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramId).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.User{}, ErrUserNotFound
	}
	if err != nil {
		return entity.User{}, err
	}
	return user, nil
}

func (r *userRepo) update(ctx context.Context, telegramId int64, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("telegram_id = ?", telegramId).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepo) SetStatus(ctx context.Context, telegramId int64, status string) error {
	switch status {
	case entity.UserStatusPending, entity.UserStatusApproved, entity.UserStatusBlocked:
	default:
		return fmt.Errorf("invalid user status %q", status)
	}
	return r.update(ctx, telegramId, map[string]any{"status": status})
}

func (r *userRepo) SetAdmin(ctx context.Context, telegramId int64, isAdmin bool) error {
	return r.update(ctx, telegramId, map[string]any{"is_admin": isAdmin})
}

func (r *userRepo) ListPending(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Where("status = ?", entity.UserStatusPending).Order("created_at").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) SetDeliveryChannel(ctx context.Context, telegramId int64, chatId string) error {
	mode := entity.DeliveryModeDM
	if chatId != "" {
		mode = entity.DeliveryModeChannel
	}
	return r.update(ctx, telegramId, map[string]any{
		"delivery_mode":    mode,
		"delivery_chat_id": chatId,
	})
}

var alertColumns = map[string]string{
	entity.CategoryPositions:   "alert_positions",
	entity.CategoryLiquidation: "alert_liquidations",
	entity.CategoryDeposit:     "alert_deposits",
	entity.CategoryWithdraw:    "alert_withdrawals",
}

func (r *userRepo) ToggleAlert(ctx context.Context, telegramId int64, category string) (bool, error) {
	column, ok := alertColumns[category]
	if !ok {
		return false, ErrUnknownCategory
	}

	var enabled bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entity.User
		err := tx.Where("telegram_id = ?", telegramId).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		enabled = !user.AlertEnabled(category)
		return tx.Model(&user).Update(column, enabled).Error
	})
	return enabled, err
}
