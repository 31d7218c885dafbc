package hyperliquid

import "github.com/KNICEX/trader-watcher/internal/service/exchange"

const (
	reqClearinghouseState          = "clearinghouseState"
	reqUserFillsByTime             = "userFillsByTime"
	reqUserNonFundingLedgerUpdates = "userNonFundingLedgerUpdates"

	// 单次 userFillsByTime 最多返回 2000 条
	fillsPageLimit = 2000
)

type userRequest struct {
	Type            string `json:"type"`
	User            string `json:"user"`
	StartTime       *int64 `json:"startTime,omitempty"`
	EndTime         *int64 `json:"endTime,omitempty"`
	AggregateByTime *bool  `json:"aggregateByTime,omitempty"`
}

type marginSummary struct {
	AccountValue    exchange.Number `json:"accountValue"`
	TotalNtlPos     exchange.Number `json:"totalNtlPos"`
	TotalRawUsd     exchange.Number `json:"totalRawUsd"`
	TotalMarginUsed exchange.Number `json:"totalMarginUsed"`
}

type assetPosition struct {
	Type     string            `json:"type"`
	Position exchange.Position `json:"position"`
}

type clearinghouseState struct {
	AssetPositions             []assetPosition `json:"assetPositions"`
	MarginSummary              marginSummary   `json:"marginSummary"`
	CrossMarginSummary         marginSummary   `json:"crossMarginSummary"`
	CrossMaintenanceMarginUsed exchange.Number `json:"crossMaintenanceMarginUsed"`
	Withdrawable               exchange.Number `json:"withdrawable"`
	Time                       int64           `json:"time"`
}
