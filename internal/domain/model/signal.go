package model

// Signal 一条交易信号记录
// 指针字段在机器人写入前为空；PnL != nil 表示已平仓
type Signal struct {
	ID               int64    `json:"id"`
	Timestamp        string   `json:"timestamp"`
	Symbol           string   `json:"symbol"`
	Action           string   `json:"action"`
	WesternScore     *float64 `json:"western_score"`
	VedicScore       *float64 `json:"vedic_score"`
	WesternSignal    *string  `json:"western_signal"`
	VedicSignal      *string  `json:"vedic_signal"`
	Nakshatra        *string  `json:"nakshatra"`
	EntryPrice       *float64 `json:"entry_price"`
	StopLoss         *float64 `json:"stop_loss"`
	Target           *float64 `json:"target"`
	PositionSizeUSDT *float64 `json:"position_size_usdt"`
	Paper            bool     `json:"paper"`
	ClosePrice       *float64 `json:"close_price"`
	PnL              *float64 `json:"pnl"`
	Result           *string  `json:"result"`
	Notes            *string  `json:"notes"`
}

// Closed 信号对应的交易是否已平仓
func (s Signal) Closed() bool { return s.PnL != nil }

// PnLOrZero 已实现盈亏，缺失时按 0 处理
func (s Signal) PnLOrZero() float64 {
	if s.PnL == nil {
		return 0
	}
	return *s.PnL
}
