package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/trader-watcher/internal/service/exchange"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.hyperliquid.xyz"

type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     float64       `mapstructure:"rate_limit"` // 每秒请求数
	Burst         int           `mapstructure:"burst"`
	MaxRetries    uint          `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 300 * time.Millisecond
	}
	return c
}

// Client Hyperliquid info 接口的 HTTP 客户端, 所有请求共享同一个限流器
type Client struct {
	cfg     Config
	infoURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		infoURL: strings.TrimRight(cfg.BaseURL, "/") + "/info",
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:  logger.Named("hyperliquid"),
	}
}

// info POST /info, 429/5xx/网络错误重试, 其余错误直接返回
func (c *Client) info(ctx context.Context, req any, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("hyperliquid: marshal request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInterval

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		err := c.do(ctx, body, out)
		if err != nil && attempt > 1 {
			c.logger.Debug("retry info request", zap.Int("attempt", attempt), zap.Error(err))
		}
		return struct{}{}, err
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.cfg.MaxRetries),
	)
	return err
}

func (c *Client) do(ctx context.Context, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("hyperliquid: create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("hyperliquid: send: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hyperliquid: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &exchange.StatusError{Code: resp.StatusCode, Body: truncate(string(data), 256)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return backoff.Permanent(fmt.Errorf("hyperliquid: decode response: %w", err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
