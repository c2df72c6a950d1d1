package storage

import (
	"database/sql"
	"strings"

	"astrodash/internal/domain/model"
)

// SignalColumns is the public column order every backend selects, aliasing its
// own column names where they differ.
var SignalColumns = []string{
	"id", "timestamp", "symbol", "action",
	"western_score", "vedic_score", "western_signal", "vedic_signal", "nakshatra",
	"entry_price", "stop_loss", "target", "position_size_usdt", "paper",
	"close_price", "pnl", "result", "notes",
}

// SelectList renders SignalColumns for a SELECT, replacing a public column with
// "<source> AS <public>" where aliases names a different source column.
func SelectList(aliases map[string]string) string {
	cols := make([]string, len(SignalColumns))
	for i, c := range SignalColumns {
		if src, ok := aliases[c]; ok && src != c {
			cols[i] = src + " AS " + c
			continue
		}
		cols[i] = c
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanSignal reads one row selected with SelectList.
func ScanSignal(row rowScanner) (model.Signal, error) {
	var s model.Signal
	var ts, symbol, action, result, notes sql.NullString
	var westernSignal, vedicSignal, nakshatra sql.NullString
	var westernScore, vedicScore sql.NullFloat64
	var entry, stop, target, size, closePx, pnl sql.NullFloat64
	var paper sql.NullBool

	err := row.Scan(&s.ID, &ts, &symbol, &action,
		&westernScore, &vedicScore, &westernSignal, &vedicSignal, &nakshatra,
		&entry, &stop, &target, &size, &paper,
		&closePx, &pnl, &result, &notes)
	if err != nil {
		return model.Signal{}, err
	}

	s.Timestamp = ts.String
	s.Symbol = symbol.String
	s.Action = action.String
	s.WesternScore = floatPtr(westernScore)
	s.VedicScore = floatPtr(vedicScore)
	s.WesternSignal = stringPtr(westernSignal)
	s.VedicSignal = stringPtr(vedicSignal)
	s.Nakshatra = stringPtr(nakshatra)
	s.EntryPrice = floatPtr(entry)
	s.StopLoss = floatPtr(stop)
	s.Target = floatPtr(target)
	s.PositionSizeUSDT = floatPtr(size)
	s.Paper = paper.Valid && paper.Bool
	s.ClosePrice = floatPtr(closePx)
	s.PnL = floatPtr(pnl)
	s.Result = stringPtr(result)
	s.Notes = stringPtr(notes)
	return s, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
