package model

// Equity 机器人维护的权益汇总
// 看板只读取其中几个字段，其余字段原样透传
type Equity map[string]any

func (e Equity) PeakEquity() float64 { return e.number("peak_equity") }

func (e Equity) PaperPnL() float64 { return e.number("paper_pnl") }

func (e Equity) number(key string) float64 {
	switch v := e[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
