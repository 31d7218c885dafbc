package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KNICEX/trader-watcher/internal/config"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/schedule"
	"github.com/KNICEX/trader-watcher/internal/service/bot"
	"github.com/KNICEX/trader-watcher/internal/service/monitor"
	"github.com/KNICEX/trader-watcher/internal/service/notification"
	"github.com/KNICEX/trader-watcher/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func initViper() *viper.Viper {
	// --config=./config/xxx.yaml, 为空时只读环境变量
	file := pflag.String("config", "", "specify config file")
	pflag.Parse()

	v, err := config.NewViper(*file)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return v
}

func main() {
	cfg, err := config.Load(initViper())
	if err != nil {
		panic(err)
	}

	logger := ioc.InitLogger(cfg.Log)
	defer logger.Sync()

	db := ioc.InitDB(cfg.DB)
	traderRepo := repo.NewTraderRepo(db, logger)
	userRepo := repo.NewUserRepo(db)
	subRepo := repo.NewSubscriptionRepo(db)

	hl := ioc.InitHyperliquid(cfg.Hyperliquid, logger)
	reg := ioc.InitRegistry()

	api := ioc.InitTelegram(cfg.Telegram)
	var sender notification.Sender = notification.NewLogSender(logger)
	if api != nil {
		sender = notification.NewTelegramSender(api)
	}

	traderMonitor := monitor.NewTraderMonitor(cfg.Monitor, traderRepo, hl.AccountService(),
		notification.NewFormatter(), logger,
		monitor.WithNotifier(notification.NewDispatcher(subRepo, sender, logger)),
		monitor.WithMetrics(monitor.NewMetrics(reg)),
	)

	tasks := []schedule.Task{traderMonitor}
	if api != nil {
		tasks = append(tasks, bot.NewBot(cfg.Telegram, api, sender, userRepo, subRepo, traderRepo,
			hl.HistoryService(), logger))
	} else {
		logger.Warn("telegram.token is empty, bot disabled and alerts only logged")
	}
	if srv := ioc.InitMetricsServer(cfg.Metrics, reg); srv != nil {
		tasks = append(tasks, srv)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := schedule.RunAll(ctx, logger, tasks...); err != nil {
		logger.Error("watcher stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("watcher stopped")
}
