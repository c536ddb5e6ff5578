package eod

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"quantai-bot/internal/tradelog"
)

type aggRow struct {
	Symbol string
	Trades int
	Wins   int
	Losses int
	Volume float64
	NetPnL float64
}

// Summarizer rolls one UTC day of the trade journal into a CSV report.
type Summarizer struct {
	journal *tradelog.Log
	outDir  string
}

func NewSummarizer(journal *tradelog.Log, outDir string) *Summarizer {
	return &Summarizer{journal: journal, outDir: outDir}
}

func (s *Summarizer) csvPath(day time.Time) string {
	return filepath.Join(s.outDir, "eod", day.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay writes the daily CSV and returns its path. An empty day
// produces no file and an empty path.
func (s *Summarizer) SummarizeDay(day time.Time) (string, error) {
	trades, err := s.journal.TradesForDay(day)
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return "", nil
	}

	aggs := map[string]*aggRow{}
	for _, t := range trades {
		row := aggs[t.Symbol]
		if row == nil {
			row = &aggRow{Symbol: t.Symbol}
			aggs[t.Symbol] = row
		}
		row.Trades++
		row.Volume += t.AmountUSD
		row.NetPnL += t.PnLUSD
		if t.PnLUSD > 0 {
			row.Wins++
		} else if t.PnLUSD < 0 {
			row.Losses++
		}
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.csvPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	headers := []string{"symbol", "trades", "wins", "losses", "win_rate_pct", "volume_usd", "net_pnl_usd"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalTrades, totalWins, totalLosses int
	var totalVolume, totalPnL float64
	for _, k := range keys {
		r := aggs[k]
		winRate := 0.0
		if r.Trades > 0 {
			winRate = float64(r.Wins) / float64(r.Trades) * 100
		}
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Trades),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Losses),
			fmt.Sprintf("%.1f", winRate),
			fmt.Sprintf("%.2f", r.Volume),
			fmt.Sprintf("%.2f", r.NetPnL),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalTrades += r.Trades
		totalWins += r.Wins
		totalLosses += r.Losses
		totalVolume += r.Volume
		totalPnL += r.NetPnL
	}

	totalWinRate := 0.0
	if totalTrades > 0 {
		totalWinRate = float64(totalWins) / float64(totalTrades) * 100
	}
	_ = w.Write([]string{
		"TOTAL",
		strconv.Itoa(totalTrades),
		strconv.Itoa(totalWins),
		strconv.Itoa(totalLosses),
		fmt.Sprintf("%.1f", totalWinRate),
		fmt.Sprintf("%.2f", totalVolume),
		fmt.Sprintf("%.2f", totalPnL),
	})
	return outPath, nil
}

// NextMidnightUTC returns the next UTC day boundary after now, used to
// schedule the daily summary and metric reset.
func NextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
