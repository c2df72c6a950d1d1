package model

import (
	"encoding/json"
	"math"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	// DefaultPositionLabel 手动开仓未指定信号标签时使用
	DefaultPositionLabel = "MANUAL"

	// OpenedAtLayout open_ts 的时间格式（精确到分钟）
	OpenedAtLayout = "2006-01-02T15:04"
)

// Position 模拟持仓，对应租户持仓列表中的一项
type Position struct {
	Side     string  `json:"side"`
	Label    string  `json:"signal"`
	Entry    float64 `json:"entry"`
	StopLoss float64 `json:"sl"`
	Target   float64 `json:"tp"`
	Notional float64 `json:"notional"`
	Risk     float64 `json:"risk"`
	Age      int     `json:"age"`
	OpenedAt string  `json:"open_ts"`
	Paper    bool    `json:"paper"`

	// Extra 机器人写入但看板未建模的字段，读写时原样保留
	Extra map[string]json.RawMessage `json:"-"`
}

type positionFields Position

func (p *Position) UnmarshalJSON(data []byte) error {
	var fields positionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range positionKeys {
		delete(all, k)
	}
	fields.Extra = nil
	if len(all) > 0 {
		fields.Extra = all
	}
	*p = Position(fields)
	return nil
}

func (p Position) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(positionFields(p))
	if err != nil || len(p.Extra) == 0 {
		return known, err
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+len(positionKeys))
	for k, v := range p.Extra {
		merged[k] = v
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

var positionKeys = []string{"side", "signal", "entry", "sl", "tp", "notional", "risk", "age", "open_ts", "paper"}

// PositionRisk 触及止损时的名义损失: |entry - stop| / entry * notional
func PositionRisk(entry, stopLoss, notional float64) float64 {
	if entry == 0 {
		return 0
	}
	return math.Abs(entry-stopLoss) / entry * notional
}
