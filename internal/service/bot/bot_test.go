package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/trader-watcher/internal/config"
	"github.com/KNICEX/trader-watcher/internal/entity"
	"github.com/KNICEX/trader-watcher/internal/repo"
	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminId = int64(100)
	userId  = int64(200)
	address = "0x1111111111111111111111111111111111111111"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, chatId string, text string) error {
	return m.Called(ctx, chatId, text).Error(0)
}

type fakeHistory struct {
	updates []exchange.LedgerUpdate
	limit   int
}

func (h *fakeHistory) GetRecentLedgerUpdates(ctx context.Context, address string, limit int) ([]exchange.LedgerUpdate, error) {
	h.limit = limit
	return h.updates, nil
}

type fixture struct {
	bot     *Bot
	sender  *mockSender
	history *fakeHistory
	users   repo.UserRepo
	traders repo.TraderRepo
}

func newFixture(t *testing.T) *fixture {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:bot_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.InitTables(db))

	f := &fixture{
		sender:  new(mockSender),
		history: &fakeHistory{},
		users:   repo.NewUserRepo(db),
		traders: repo.NewTraderRepo(db, zap.NewNop()),
	}
	f.bot = NewBot(config.TelegramConfig{Admins: []int64{adminId}}, nil, f.sender,
		f.users, repo.NewSubscriptionRepo(db), f.traders, f.history, zap.NewNop())
	return f
}

func (f *fixture) run(from int64, line string) string {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	return f.bot.Handle(context.Background(), Command{
		ChatId:   from,
		UserId:   from,
		Username: fmt.Sprintf("user%d", from),
		Name:     fields[0],
		Args:     fields[1:],
	})
}

func (f *fixture) approvedUser(t *testing.T) {
	f.sender.On("Send", mock.Anything, "100", mock.Anything).Return(nil).Maybe()
	f.sender.On("Send", mock.Anything, "200", mock.Anything).Return(nil).Maybe()
	f.run(adminId, "/start")
	f.run(userId, "/start")
	require.Contains(t, f.run(adminId, "/approve 200"), "approved")
}

func TestBot_StartAndApproval(t *testing.T) {
	f := newFixture(t)
	f.sender.On("Send", mock.Anything, "100", "New access request: @user200 (id=200)\n/approve 200").Return(nil).Once()
	f.sender.On("Send", mock.Anything, "200", mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "Access granted.")
	})).Return(nil).Once()

	// 管理员自动审批
	reply := f.run(adminId, "/start")
	assert.Contains(t, reply, "/approve <telegram id>")
	admin, err := f.users.FindByTelegramId(context.Background(), adminId)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, entity.UserStatusApproved, admin.Status)

	assert.Equal(t, msgPending, f.run(userId, "/start"))
	assert.Equal(t, msgNoAccess, f.run(userId, "/list"))
	assert.Contains(t, f.run(adminId, "/pending"), "@user200 id=200")

	assert.Equal(t, "User 200 is now approved.", f.run(adminId, "/approve 200"))
	assert.Contains(t, f.run(userId, "/list"), "not watching")
	assert.Equal(t, "No pending requests.", f.run(adminId, "/pending"))

	assert.Equal(t, "User 200 is now blocked.", f.run(adminId, "/block 200"))
	assert.Equal(t, msgBlocked, f.run(userId, "/start"))
	f.sender.AssertExpectations(t)
}

func TestBot_AdminCommandsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	f.approvedUser(t)

	assert.Equal(t, msgUnknown, f.run(userId, "/approve 300"))
	assert.Equal(t, msgUnknown, f.run(userId, "/pending"))
	assert.Equal(t, "User 300 not found.", f.run(adminId, "/approve 300"))
	assert.Equal(t, "Usage: /block <telegram id>", f.run(adminId, "/block abc"))
}

func TestBot_Subscriptions(t *testing.T) {
	f := newFixture(t)
	f.approvedUser(t)

	assert.Contains(t, f.run(userId, "/add 0x123"), "Usage")
	assert.Contains(t, f.run(userId, "/add "+strings.ToUpper(address[2:])), "Usage")
	assert.Equal(t, "Watching 0x1111…1111. Alerts start after the first poll records its current state.",
		f.run(userId, "/add 0x"+strings.ToUpper(address[2:])))

	trader, err := f.traders.FindByAddress(context.Background(), address)
	require.NoError(t, err)
	value := "1250000.5"
	require.NoError(t, f.traders.SaveCursor(context.Background(), trader.Id, repo.Cursor{
		Positions:        map[string]exchange.Position{},
		LastAccountValue: &value,
	}))
	assert.Equal(t, "Watched traders:\n"+address+"  $1.25M", f.run(userId, "/list"))

	assert.Equal(t, "Stopped watching 0x1111…1111.", f.run(userId, "/remove "+address))
	assert.Contains(t, f.run(userId, "/list"), "not watching")
	assert.Equal(t, "0x2222…2222 is not being watched.",
		f.run(userId, "/remove 0x2222222222222222222222222222222222222222"))
}

func TestBot_Preferences(t *testing.T) {
	f := newFixture(t)
	f.approvedUser(t)

	assert.Contains(t, f.run(userId, "/alerts"), "deposit: on")
	assert.Equal(t, "deposit alerts: off", f.run(userId, "/toggle deposit"))
	assert.Contains(t, f.run(userId, "/alerts"), "deposit: off")
	assert.Equal(t, "deposit alerts: on", f.run(userId, "/toggle DEPOSIT"))
	assert.Contains(t, f.run(userId, "/toggle funding"), "Usage")

	assert.Equal(t, "Alerts will be delivered to @whales.", f.run(userId, "/channel @whales"))
	assert.Contains(t, f.run(userId, "/channel"), "Alerts go to @whales")
	user, err := f.users.FindByTelegramId(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, "@whales", user.DeliveryTarget())

	assert.Contains(t, f.run(userId, "/channel whales"), "Usage")
	assert.Equal(t, "Alerts will be delivered to this chat.", f.run(userId, "/channel off"))
	user, err = f.users.FindByTelegramId(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, "200", user.DeliveryTarget())
}

func TestBot_Ledger(t *testing.T) {
	f := newFixture(t)
	f.approvedUser(t)

	assert.Equal(t, "History of 0x1111…1111: no ledger updates in the last 30 days.", f.run(userId, "/ledger "+address))

	f.history.updates = []exchange.LedgerUpdate{
		{Time: time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC).UnixMilli(),
			Delta: exchange.LedgerDelta{Type: "withdraw", Usdc: "250"}},
		{Time: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).UnixMilli(),
			Delta: exchange.LedgerDelta{Type: "internalTransfer", Usdc: "5"}},
	}
	assert.Equal(t, "History of 0x1111…1111:\n"+
		"2024-03-02 10:30 UTC  withdraw  250 USD\n"+
		"2024-03-01 08:00 UTC  internalTransfer  5 USD", f.run(userId, "/ledger "+address))
	assert.Equal(t, ledgerLimit, f.history.limit)
}

type fakeUpdates struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
}

func (u *fakeUpdates) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return u.ch
}

func (u *fakeUpdates) StopReceivingUpdates() {
	close(u.stopped)
}

func TestBot_Run(t *testing.T) {
	f := newFixture(t)
	updates := &fakeUpdates{ch: make(chan tgbotapi.Update, 1), stopped: make(chan struct{})}
	f.bot.updates = updates

	replied := make(chan string, 1)
	f.sender.On("Send", mock.Anything, "100", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		replied <- args.String(2)
	}).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx) }()

	updates.ch <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/start",
		Chat:     &tgbotapi.Chat{ID: adminId},
		From:     &tgbotapi.User{ID: adminId, UserName: "admin"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}}

	select {
	case reply := <-replied:
		assert.Contains(t, reply, "Commands:")
	case <-time.After(time.Second):
		t.Fatal("no reply")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	<-updates.stopped
}
