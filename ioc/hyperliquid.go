package ioc

import (
	"github.com/KNICEX/trader-watcher/internal/service/exchange/hyperliquid"
	"go.uber.org/zap"
)

func InitHyperliquid(cfg hyperliquid.Config, logger *zap.Logger) *hyperliquid.Service {
	return hyperliquid.NewService(hyperliquid.NewClient(cfg, logger))
}
