package decimalx

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatUSD 金额缩写: $950.00, $1.25K, -$3.40M, $2.00B; 非有限值输出 —
func FormatUSD(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "—"
	}
	d := decimal.NewFromFloat(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	switch {
	case d.GreaterThanOrEqual(billion):
		return fmt.Sprintf("%s$%sB", sign, d.Div(billion).StringFixed(2))
	case d.GreaterThanOrEqual(million):
		return fmt.Sprintf("%s$%sM", sign, d.Div(million).StringFixed(2))
	case d.GreaterThanOrEqual(thousand):
		return fmt.Sprintf("%s$%sK", sign, d.Div(thousand).StringFixed(2))
	default:
		return fmt.Sprintf("%s$%s", sign, d.StringFixed(2))
	}
}
