package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/KNICEX/trader-watcher/pkg/decimalx"
)

// Number 交易所返回的十进制数值, 兼容字符串/数字/null 三种写法
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	*n = Number(data)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

// Float 解析失败按 0 处理
func (n Number) Float() float64 {
	return decimalx.FloatOr(string(n), 0)
}

func (n Number) String() string {
	return string(n)
}

// StatusError 交易所返回非 2xx
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange: unexpected status %d: %s", e.Code, e.Body)
}

// Service 交易所只读查询入口
type Service interface {
	AccountService() AccountService
	HistoryService() HistoryService
}
