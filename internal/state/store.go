package state

import (
	"strings"
	"sync"
	"time"

	"quantai-bot/internal/types"

	"github.com/google/uuid"
)

// maxReadLimit caps ledger reads when the caller asks for everything.
const maxReadLimit = 1000

// Store owns the portfolio state for one wallet. All compound mutations
// happen under a single mutex so external readers never observe a torn
// update.
type Store struct {
	mu sync.Mutex

	walletAddress    string
	walletBalanceUSD float64
	positions        map[string]types.Position
	totalPnL         float64
	dailyPnL         float64
	dailyLoss        float64
	cycleCount       int
	lastRunTime      time.Time
	trades           []types.TradeRecord
	failedTrades     []types.FailedTradeRecord
	errorLog         []types.ErrorEntry
	scratch          types.CycleScratch
}

func New(walletAddress string, balanceUSD float64) *Store {
	return &Store{
		walletAddress:    walletAddress,
		walletBalanceUSD: balanceUSD,
		positions:        make(map[string]types.Position),
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RecordOpportunity overwrites the cycle's selected opportunity.
func (s *Store) RecordOpportunity(o types.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.SelectedOpportunity = &o
}

func (s *Store) RecordRiskAssessment(r types.RiskAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.RiskCheckResult = &r
}

func (s *Store) RecordDecision(d types.ExecutiveDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.SupervisorDecision = &d
}

func (s *Store) RecordExecution(e types.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.TradeExecutionResult = &e
}

func (s *Store) RecordAnnouncement(a types.Announcement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratch.LastAnnouncement = &a
}

// AppendCompletedTrade assigns a fresh id, appends the trade to the ledger
// and applies its P&L to the running totals in one atomic update. The
// realized P&L is also credited to the wallet balance.
func (s *Store) AppendCompletedTrade(t types.TradeRecord) types.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = newID("TRADE_")
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	s.trades = append(s.trades, t)

	s.totalPnL += t.PnLUSD
	s.dailyPnL += t.PnLUSD
	if t.PnLUSD < 0 {
		s.dailyLoss += -t.PnLUSD
	}
	s.walletBalanceUSD += t.PnLUSD

	return t
}

// AppendFailedTrade assigns a fresh id and appends to the failure ledger.
// P&L totals are untouched.
func (s *Store) AppendFailedTrade(t types.FailedTradeRecord) types.FailedTradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = newID("FAILED_")
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	s.failedTrades = append(s.failedTrades, t)
	return t
}

// LogError appends a timestamped message to the error log.
func (s *Store) LogError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, types.ErrorEntry{
		Time:    time.Now().UTC(),
		Message: message,
	})
}

// IncrementCycle bumps the cycle counter, stamps the last-run time and
// clears the previous cycle's scratch outputs. Returns the new count.
func (s *Store) IncrementCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleCount++
	s.lastRunTime = time.Now().UTC()
	s.scratch = types.CycleScratch{}
	return s.cycleCount
}

// UpsertPosition inserts or replaces the open position for a token.
func (s *Store) UpsertPosition(p types.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UnrealizedPnLUSD = p.Amount * (p.CurrentPriceUSD - p.EntryPriceUSD)
	s.positions[p.TokenAddress] = p
}

// MarkPosition updates the live price of an open position, recomputing its
// unrealized P&L. No-op when the token is not held.
func (s *Store) MarkPosition(tokenAddress string, priceUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[tokenAddress]
	if !ok {
		return
	}
	p.CurrentPriceUSD = priceUSD
	p.UnrealizedPnLUSD = p.Amount * (priceUSD - p.EntryPriceUSD)
	s.positions[tokenAddress] = p
}

// DebitPosition reduces an open position by amount token units, removing
// it once fully drawn down. No-op when the token is not held.
func (s *Store) DebitPosition(tokenAddress string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[tokenAddress]
	if !ok || amount <= 0 {
		return
	}
	p.Amount -= amount
	if p.Amount <= 0 {
		delete(s.positions, tokenAddress)
		return
	}
	p.UnrealizedPnLUSD = p.Amount * (p.CurrentPriceUSD - p.EntryPriceUSD)
	s.positions[tokenAddress] = p
}

// RemovePosition closes a position and returns it. ok is false when the
// token was not held.
func (s *Store) RemovePosition(tokenAddress string) (types.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[tokenAddress]
	if ok {
		delete(s.positions, tokenAddress)
	}
	return p, ok
}

func (s *Store) WalletBalanceUSD() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletBalanceUSD
}

// PortfolioSummary computes a consistent snapshot of the headline numbers.
func (s *Store) PortfolioSummary() types.PortfolioSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalValue := 0.0
	for _, p := range s.positions {
		totalValue += p.Amount * p.CurrentPriceUSD
	}

	return types.PortfolioSummary{
		PositionCount: len(s.positions),
		TotalValueUSD: totalValue,
		TotalPnLUSD:   s.totalPnL,
		DailyPnLUSD:   s.dailyPnL,
		DailyLossUSD:  s.dailyLoss,
		WinRatePct:    s.winRateLocked(),
	}
}

func (s *Store) winRateLocked() float64 {
	if len(s.trades) == 0 {
		return 0
	}
	winners := 0
	for _, t := range s.trades {
		if t.PnLUSD > 0 {
			winners++
		}
	}
	return float64(winners) / float64(len(s.trades)) * 100
}

// PerformanceMetrics derives win/loss statistics from the completed trade
// ledger. ProfitFactor is nil when there are no losing trades.
func (s *Store) PerformanceMetrics() types.PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := types.PerformanceMetrics{TotalTrades: len(s.trades)}
	var winSum, lossSum float64
	for _, t := range s.trades {
		if t.PnLUSD > 0 {
			m.WinningTrades++
			winSum += t.PnLUSD
		} else if t.PnLUSD < 0 {
			m.LosingTrades++
			lossSum += -t.PnLUSD
		}
	}
	m.WinRatePct = s.winRateLocked()
	if m.WinningTrades > 0 {
		m.AvgWinUSD = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLossUSD = lossSum / float64(m.LosingTrades)
		pf := m.AvgWinUSD / m.AvgLossUSD
		m.ProfitFactor = &pf
	}
	return m
}

// ResetDailyMetrics zeroes the daily counters. Intended to run on a
// calendar-day boundary by an external scheduler.
func (s *Store) ResetDailyMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyPnL = 0
	s.dailyLoss = 0
}

// Reset discards everything except the wallet identity and re-creates the
// state empty with the given starting balance.
func (s *Store) Reset(balanceUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletBalanceUSD = balanceUSD
	s.positions = make(map[string]types.Position)
	s.totalPnL = 0
	s.dailyPnL = 0
	s.dailyLoss = 0
	s.cycleCount = 0
	s.lastRunTime = time.Time{}
	s.trades = nil
	s.failedTrades = nil
	s.errorLog = nil
	s.scratch = types.CycleScratch{}
}

func (s *Store) CycleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycleCount
}

func (s *Store) LastRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunTime
}

// TradeHistory returns up to limit most recent completed trades, oldest
// first. limit <= 0 falls back to an internal cap.
func (s *Store) TradeHistory(limit int) []types.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := boundedLen(len(s.trades), limit)
	out := make([]types.TradeRecord, n)
	copy(out, s.trades[len(s.trades)-n:])
	return out
}

// FailedTradeHistory returns up to limit most recent failed trades.
func (s *Store) FailedTradeHistory(limit int) []types.FailedTradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := boundedLen(len(s.failedTrades), limit)
	out := make([]types.FailedTradeRecord, n)
	copy(out, s.failedTrades[len(s.failedTrades)-n:])
	return out
}

// Errors returns up to limit most recent error log entries.
func (s *Store) Errors(limit int) []types.ErrorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := boundedLen(len(s.errorLog), limit)
	out := make([]types.ErrorEntry, n)
	copy(out, s.errorLog[len(s.errorLog)-n:])
	return out
}

func boundedLen(have, limit int) int {
	if limit <= 0 || limit > maxReadLimit {
		limit = maxReadLimit
	}
	if have < limit {
		return have
	}
	return limit
}

// CurrentCycle returns the latest per-stage outputs of the active cycle.
func (s *Store) CurrentCycle() types.CycleScratch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratch
}

// Snapshot exports the full state as a flat serializable structure.
func (s *Store) Snapshot() types.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]types.Position, len(s.positions))
	for k, v := range s.positions {
		positions[k] = v
	}
	trades := make([]types.TradeRecord, len(s.trades))
	copy(trades, s.trades)
	failed := make([]types.FailedTradeRecord, len(s.failedTrades))
	copy(failed, s.failedTrades)
	errs := make([]types.ErrorEntry, len(s.errorLog))
	copy(errs, s.errorLog)

	return types.StateSnapshot{
		WalletAddress:    s.walletAddress,
		WalletBalanceUSD: s.walletBalanceUSD,
		Positions:        positions,
		TotalPnLUSD:      s.totalPnL,
		DailyPnLUSD:      s.dailyPnL,
		DailyLossUSD:     s.dailyLoss,
		CycleCount:       s.cycleCount,
		LastRunTime:      s.lastRunTime,
		Trades:           trades,
		FailedTrades:     failed,
		Errors:           errs,
		Scratch:          s.scratch,
	}
}
