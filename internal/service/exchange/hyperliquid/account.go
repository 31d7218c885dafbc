package hyperliquid

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KNICEX/trader-watcher/internal/service/exchange"
)

var (
	_ exchange.AccountService = (*AccountService)(nil)
	_ exchange.HistoryService = (*AccountService)(nil)
)

type AccountService struct {
	cli *Client
}

func NewAccountService(cli *Client) *AccountService {
	return &AccountService{cli: cli}
}

func (s *AccountService) GetAccountSnapshot(ctx context.Context, address string) (exchange.AccountSnapshot, error) {
	addr := normalizeAddress(address)

	var state clearinghouseState
	err := s.cli.info(ctx, userRequest{Type: reqClearinghouseState, User: addr}, &state)
	if err != nil {
		return exchange.AccountSnapshot{}, fmt.Errorf("fetch clearinghouse state %s: %w", addr, err)
	}

	snapshot := exchange.AccountSnapshot{
		Address:   addr,
		Positions: make(map[string]exchange.Position, len(state.AssetPositions)),
		Time:      state.Time,
	}
	for _, ap := range state.AssetPositions {
		p := ap.Position
		if p.Coin == "" {
			continue
		}
		snapshot.Positions[p.Coin] = p
		snapshot.TotalPositionValue += math.Abs(p.PositionValue.Float())
	}

	if v := state.MarginSummary.AccountValue.String(); v != "" {
		snapshot.AccountValue = &v
	}
	if v := state.Withdrawable.String(); v != "" {
		snapshot.Withdrawable = &v
	}
	return snapshot, nil
}

func (s *AccountService) GetFills(ctx context.Context, address string, start, end time.Time) ([]exchange.Fill, error) {
	addr := normalizeAddress(address)
	aggregate := false
	endMs := end.UnixMilli()

	// 超过单页上限时从最后一条的时间重新取, 同一毫秒内的成交按 Key 去重
	var all []exchange.Fill
	seen := make(map[string]struct{})
	startMs := start.UnixMilli()
	for {
		from := startMs
		var page []exchange.Fill
		err := s.cli.info(ctx, userRequest{
			Type:            reqUserFillsByTime,
			User:            addr,
			StartTime:       &from,
			EndTime:         &endMs,
			AggregateByTime: &aggregate,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch fills %s: %w", addr, err)
		}

		added := 0
		last := from
		for _, f := range page {
			last = max(last, f.Time)
			if _, ok := seen[f.Key()]; ok {
				continue
			}
			seen[f.Key()] = struct{}{}
			all = append(all, f)
			added++
		}

		if len(page) < fillsPageLimit {
			break
		}
		startMs = last
		// 整页都在同一毫秒且没有新数据时只能跳过该毫秒
		if added == 0 || last == from {
			startMs = last + 1
		}
		if startMs > endMs {
			break
		}
	}
	return all, nil
}

func (s *AccountService) GetLedgerUpdates(ctx context.Context, address string, start, end time.Time) ([]exchange.LedgerUpdate, error) {
	addr := normalizeAddress(address)
	startMs, endMs := start.UnixMilli(), end.UnixMilli()

	var updates []exchange.LedgerUpdate
	err := s.cli.info(ctx, userRequest{
		Type:      reqUserNonFundingLedgerUpdates,
		User:      addr,
		StartTime: &startMs,
		EndTime:   &endMs,
	}, &updates)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger updates %s: %w", addr, err)
	}
	return updates, nil
}

func (s *AccountService) GetRecentLedgerUpdates(ctx context.Context, address string, limit int) ([]exchange.LedgerUpdate, error) {
	end := time.Now()
	updates, err := s.GetLedgerUpdates(ctx, address, end.Add(-30*24*time.Hour), end)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Time > updates[j].Time
	})
	if limit > 0 && len(updates) > limit {
		updates = updates[:limit]
	}
	return updates, nil
}
