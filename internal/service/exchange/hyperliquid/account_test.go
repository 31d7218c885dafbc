package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const clearinghouseBody = `{
  "assetPositions": [
    {"type": "oneWay", "position": {"coin": "BTC", "szi": "1.5", "entryPx": "60000.0",
      "leverage": {"type": "cross", "value": 10}, "positionValue": "91500.0", "unrealizedPnl": "1500.0",
      "liquidationPx": null}},
    {"type": "oneWay", "position": {"coin": "ETH", "szi": "-2.0", "entryPx": "3000.0",
      "leverage": {"type": "isolated", "value": 5, "rawUsd": "6500.0"}, "positionValue": "-6000.0"}},
    {"type": "oneWay", "position": {"coin": "", "szi": "0"}}
  ],
  "marginSummary": {"accountValue": "12345.67", "totalNtlPos": "97500.0", "totalRawUsd": "1000.0", "totalMarginUsed": "10350.0"},
  "crossMarginSummary": {"accountValue": "12000.0"},
  "withdrawable": "2000.5",
  "time": 1700000000000
}`

func newTestService(t *testing.T, handler http.HandlerFunc) *AccountService {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cli := NewClient(Config{
		BaseURL:       srv.URL,
		RateLimit:     1000,
		Burst:         100,
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
	}, zap.NewNop())
	return NewAccountService(cli)
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	var req map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestGetAccountSnapshot(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		req := decodeRequest(t, r)
		assert.Equal(t, "clearinghouseState", req["type"])
		assert.Equal(t, "0xabcdef", req["user"])
		_, _ = w.Write([]byte(clearinghouseBody))
	})

	snapshot, err := svc.GetAccountSnapshot(context.Background(), "0xABCDEF")
	require.NoError(t, err)

	assert.Equal(t, "0xabcdef", snapshot.Address)
	require.Len(t, snapshot.Positions, 2)
	btc := snapshot.Positions["BTC"]
	assert.Equal(t, 1.5, btc.Size.Float())
	assert.Equal(t, 10, btc.LeverageValue())
	assert.Equal(t, exchange.Number(""), btc.LiquidationPx)
	eth := snapshot.Positions["ETH"]
	assert.Equal(t, -2.0, eth.Size.Float())
	assert.Equal(t, 5, eth.LeverageValue())

	require.NotNil(t, snapshot.AccountValue)
	assert.Equal(t, "12345.67", *snapshot.AccountValue)
	require.NotNil(t, snapshot.Withdrawable)
	assert.Equal(t, "2000.5", *snapshot.Withdrawable)
	assert.Equal(t, 97500.0, snapshot.TotalPositionValue)
	assert.Equal(t, int64(1700000000000), snapshot.Time)
}

func TestGetFills(t *testing.T) {
	start := time.UnixMilli(1_000)
	end := time.UnixMilli(9_000)

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "userFillsByTime", req["type"])
		assert.Equal(t, float64(1_000), req["startTime"])
		assert.Equal(t, float64(9_000), req["endTime"])
		assert.Equal(t, false, req["aggregateByTime"])
		_, _ = w.Write([]byte(`[
			{"coin": "BTC", "px": "60000", "sz": "0.1", "side": "B", "time": 2000, "closedPnl": "10.0", "dir": "Close Short"},
			{"coin": "ETH", "px": 3000, "sz": 1, "side": "A", "time": 3000, "closedPnl": "-3.5"}
		]`))
	})

	fills, err := svc.GetFills(context.Background(), "0xabc", start, end)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "BTC", fills[0].Coin)
	assert.Equal(t, 10.0, fills[0].ClosedPnl.Float())
	assert.Equal(t, exchange.Number("3000"), fills[1].Price)
	assert.Equal(t, -3.5, fills[1].ClosedPnl.Float())
}

func TestGetFills_Pagination(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		n := calls.Add(1)
		page := make([]exchange.Fill, 0, fillsPageLimit)
		switch n {
		case 1:
			assert.Equal(t, float64(0), req["startTime"])
			for i := 0; i < fillsPageLimit; i++ {
				page = append(page, exchange.Fill{Coin: "BTC", Time: int64(i), Tid: int64(i + 1), ClosedPnl: "1"})
			}
		default:
			// 从上一页最后一条的毫秒重新开始, 该毫秒还有未取到的成交
			assert.Equal(t, float64(fillsPageLimit-1), req["startTime"])
			page = append(page,
				exchange.Fill{Coin: "BTC", Time: fillsPageLimit - 1, Tid: fillsPageLimit, ClosedPnl: "1"},
				exchange.Fill{Coin: "BTC", Time: fillsPageLimit - 1, Tid: fillsPageLimit + 1, ClosedPnl: "1"},
				exchange.Fill{Coin: "ETH", Time: fillsPageLimit + 5, Tid: fillsPageLimit + 2},
			)
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	fills, err := svc.GetFills(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(100_000))
	require.NoError(t, err)
	assert.Len(t, fills, fillsPageLimit+2)
	assert.Equal(t, int32(2), calls.Load())

	btc := 0
	for _, f := range fills {
		if f.Coin == "BTC" {
			btc++
		}
	}
	assert.Equal(t, fillsPageLimit+1, btc)
}

func TestGetFills_FullPageSameMillisecond(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		calls.Add(1)
		page := make([]exchange.Fill, 0, fillsPageLimit)
		if req["startTime"] == float64(50) {
			for i := 0; i < fillsPageLimit; i++ {
				page = append(page, exchange.Fill{Coin: "BTC", Time: 50, Tid: int64(i + 1)})
			}
		} else {
			assert.Equal(t, float64(51), req["startTime"])
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	fills, err := svc.GetFills(context.Background(), "0xabc", time.UnixMilli(50), time.UnixMilli(1000))
	require.NoError(t, err)
	assert.Len(t, fills, fillsPageLimit)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetLedgerUpdates(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "userNonFundingLedgerUpdates", req["type"])
		_, _ = w.Write([]byte(`[
			{"time": 100, "hash": "0x1", "delta": {"type": "deposit", "usdc": "2500.0"}},
			{"time": 200, "hash": "0x2", "delta": {"type": "spotTransfer", "token": "HYPE", "amount": "3"}}
		]`))
	})

	updates, err := svc.GetLedgerUpdates(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1000))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "deposit", updates[0].Tag())
	assert.Equal(t, "2500.0", updates[0].AmountText())
	assert.Equal(t, "USD", updates[0].Asset())
	assert.Contains(t, string(updates[0].Raw), `"hash": "0x1"`)
	assert.Equal(t, "HYPE", updates[1].Asset())
}

func TestGetRecentLedgerUpdates(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"time": 100, "delta": {"type": "deposit"}},
			{"time": 300, "delta": {"type": "withdraw"}},
			{"time": 200, "delta": {"type": "deposit"}}
		]`))
	})

	updates, err := svc.GetRecentLedgerUpdates(context.Background(), "0xabc", 2)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(300), updates[0].Time)
	assert.Equal(t, int64(200), updates[1].Time)
}

func TestInfo_RetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	updates, err := svc.GetLedgerUpdates(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1))
	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInfo_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`bad user`))
	})

	_, err := svc.GetAccountSnapshot(context.Background(), "0xabc")
	require.Error(t, err)

	var statusErr *exchange.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInfo_GiveUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.GetFills(context.Background(), "0xabc", time.UnixMilli(0), time.UnixMilli(1))
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInfo_BadBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"assetPositions": "oops"}`))
	})

	_, err := svc.GetAccountSnapshot(context.Background(), "0xabc")
	assert.Error(t, err)
}
