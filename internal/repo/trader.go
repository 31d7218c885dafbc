package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTraderNotFound = errors.New("trader not found")

// Account 需要轮询的地址
type Account struct {
	Id      int64
	Address string
}

// Cursor 单个地址的轮询游标
type Cursor struct {
	// Positions 为 nil 表示从未观测过
	Positions        map[string]exchange.Position
	LastLedgerMs     *int64
	LastFillsMs      *int64
	LastAccountValue *string
}

// Empty 三个游标字段全为空, 即首次观测
func (c Cursor) Empty() bool {
	return c.Positions == nil && c.LastLedgerMs == nil && c.LastFillsMs == nil
}

func (c Cursor) Bootstrapped() bool {
	return c.Positions != nil && c.LastLedgerMs != nil && c.LastFillsMs != nil
}

type TraderRepo interface {
	GetOrCreate(ctx context.Context, address string) (entity.Trader, error)
	FindByAddress(ctx context.Context, address string) (entity.Trader, error)
	// ListMonitored 至少有一个订阅者的地址, 去重
	ListMonitored(ctx context.Context) ([]Account, error)
	// LoadCursor 不存在时创建空游标
	LoadCursor(ctx context.Context, traderId int64) (Cursor, error)
	// SaveCursor 在一个事务内整体替换游标, 水位只前进不后退
	// 已无订阅者时不写入
	SaveCursor(ctx context.Context, traderId int64, cursor Cursor) error
}

type traderRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTraderRepo(db *gorm.DB, logger *zap.Logger) TraderRepo {
	return &traderRepo{
		db:     db,
		logger: logger.Named("trader_repo"),
	}
}

func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (r *traderRepo) GetOrCreate(ctx context.Context, address string) (entity.Trader, error) {
	return getOrCreateTrader(r.db.WithContext(ctx), address)
}

func getOrCreateTrader(tx *gorm.DB, address string) (entity.Trader, error) {
	trader := entity.Trader{Address: NormalizeAddress(address)}
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&trader).Error
	if err != nil {
		return entity.Trader{}, err
	}
	err = tx.Where("address = ?", trader.Address).First(&trader).Error
	if err != nil {
		return entity.Trader{}, err
	}
	return trader, nil
}

func (r *traderRepo) FindByAddress(ctx context.Context, address string) (entity.Trader, error) {
	var trader entity.Trader
	err := r.db.WithContext(ctx).Where("address = ?", NormalizeAddress(address)).First(&trader).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Trader{}, ErrTraderNotFound
	}
	if err != nil {
		return entity.Trader{}, err
	}
	return trader, nil
}

func (r *traderRepo) ListMonitored(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := r.db.WithContext(ctx).Model(&entity.Trader{}).
		Distinct("traders.id", "traders.address").
		Joins("JOIN user_traders ON user_traders.trader_id = traders.id").
		Order("traders.id").
		Scan(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *traderRepo) LoadCursor(ctx context.Context, traderId int64) (Cursor, error) {
	var state entity.TraderState
	err := r.db.WithContext(ctx).
		Where(entity.TraderState{TraderId: traderId}).
		FirstOrCreate(&state).Error
	if err != nil {
		return Cursor{}, err
	}

	cursor := Cursor{
		LastLedgerMs:     state.LastLedgerTsMs,
		LastFillsMs:      state.LastFillsTsMs,
		LastAccountValue: state.LastAccountValue,
	}
	if state.PositionsJson != nil {
		var positions map[string]exchange.Position
		if err := json.Unmarshal([]byte(*state.PositionsJson), &positions); err != nil {
			r.logger.Warn("bad positions json, treat as empty", zap.Int64("trader_id", traderId), zap.Error(err))
		}
		if positions == nil {
			positions = map[string]exchange.Position{}
		}
		cursor.Positions = positions
	}
	return cursor, nil
}

func (r *traderRepo) SaveCursor(ctx context.Context, traderId int64, cursor Cursor) error {
	positions := cursor.Positions
	if positions == nil {
		positions = map[string]exchange.Position{}
	}
	data, err := json.Marshal(positions)
	if err != nil {
		return err
	}
	positionsJson := string(data)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 轮询期间最后一个订阅者离开: 不写回游标, 再次订阅时重新走首次观测
		var links int64
		err := tx.Model(&entity.UserTrader{}).Where("trader_id = ?", traderId).Count(&links).Error
		if err != nil {
			return err
		}
		if links == 0 {
			r.logger.Debug("trader unsubscribed during poll, drop cursor", zap.Int64("trader_id", traderId))
			return tx.Where("trader_id = ?", traderId).Delete(&entity.TraderState{}).Error
		}

		var state entity.TraderState
		err = tx.Where(entity.TraderState{TraderId: traderId}).FirstOrInit(&state).Error
		if err != nil {
			return err
		}
		state.TraderId = traderId
		state.PositionsJson = &positionsJson
		state.LastLedgerTsMs = laterOf(state.LastLedgerTsMs, cursor.LastLedgerMs)
		state.LastFillsTsMs = laterOf(state.LastFillsTsMs, cursor.LastFillsMs)
		state.LastAccountValue = cursor.LastAccountValue
		return tx.Save(&state).Error
	})
}

func laterOf(old, cur *int64) *int64 {
	if old == nil {
		return cur
	}
	if cur == nil || *cur < *old {
		return old
	}
	return cur
}
