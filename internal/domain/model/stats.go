package model

import "encoding/json"

// TradeStats 已平仓交易统计
type TradeStats struct {
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
	AvgWin   float64 `json:"avg_win"`
	AvgLoss  float64 `json:"avg_loss"`
}

// Stats 交易统计加实时账户数据，每次读取时计算，不落库
type Stats struct {
	TradeStats
	PeakEquity    float64 `json:"peak_equity"`
	PaperPnL      float64 `json:"paper_pnl"`
	OpenPositions int     `json:"open_positions"`
}

// TenantSnapshot 广播消息中单个租户的数据
type TenantSnapshot struct {
	Positions    []Position `json:"positions"`
	Equity       Equity     `json:"equity"`
	LatestSignal *Signal    `json:"latest_signal"`
}

// NoSignal 没有最新信号时的编码（空对象），前端可直接取字段
var NoSignal = json.RawMessage(`{}`)

func (s TenantSnapshot) MarshalJSON() ([]byte, error) {
	out := struct {
		Positions    []Position `json:"positions"`
		Equity       Equity     `json:"equity"`
		LatestSignal any        `json:"latest_signal"`
	}{Positions: s.Positions, Equity: s.Equity, LatestSignal: NoSignal}
	if s.LatestSignal != nil {
		out.LatestSignal = s.LatestSignal
	}
	return json.Marshal(out)
}
