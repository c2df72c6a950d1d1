package service

import (
	"math"

	"astrodash/internal/domain/model"
)

// ComputeStats 统计已平仓交易
// pnl == 0（或没有 pnl）记为亏损
func ComputeStats(trades []model.Signal) model.TradeStats {
	if len(trades) == 0 {
		return model.TradeStats{}
	}

	var (
		wins, losses    int
		winSum, lossSum float64
		total           float64
	)
	for _, t := range trades {
		pnl := t.PnLOrZero()
		total += pnl
		if pnl > 0 {
			wins++
			winSum += pnl
		} else {
			losses++
			lossSum += pnl
		}
	}

	st := model.TradeStats{
		Trades:   len(trades),
		Wins:     wins,
		Losses:   losses,
		WinRate:  round(float64(wins)/float64(len(trades))*100, 1),
		TotalPnL: round(total, 2),
	}
	if wins > 0 {
		st.AvgWin = round(winSum/float64(wins), 2)
	}
	if losses > 0 {
		st.AvgLoss = round(lossSum/float64(losses), 2)
	}
	return st
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
