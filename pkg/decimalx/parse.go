package decimalx

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FromString 解析交易所返回的十进制字符串, 空串或非法值返回 false
func FromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FloatOr 解析失败时返回 def, 永不 panic
// 所有数值字段统一走这里, 解析失败的容错策略只在这一处决定
func FloatOr(s string, def float64) float64 {
	f, ok := finite(s)
	if !ok {
		return def
	}
	return f
}

// FloatPtr 解析成功返回指针, 失败返回 nil
func FloatPtr(s string) *float64 {
	f, ok := finite(s)
	if !ok {
		return nil
	}
	return &f
}

// finite 超出 float64 范围 (如 1e400) 视为解析失败
func finite(s string) (float64, bool) {
	d, ok := FromString(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
