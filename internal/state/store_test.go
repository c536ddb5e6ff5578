package state

import (
	"strings"
	"sync"
	"testing"
	"time"

	"quantai-bot/internal/types"
)

func TestAppendCompletedTradeUpdatesPnL(t *testing.T) {
	s := New("demo_wallet", 1000)

	pnls := []float64{25.0, -10.0, 5.5, -0.5, 0}
	for _, p := range pnls {
		s.AppendCompletedTrade(types.TradeRecord{Symbol: "BONK", PnLUSD: p})
	}

	sum := s.PortfolioSummary()
	if sum.TotalPnLUSD != 20.0 {
		t.Errorf("expected total pnl 20.0, got %f", sum.TotalPnLUSD)
	}
	if sum.DailyPnLUSD != 20.0 {
		t.Errorf("expected daily pnl 20.0, got %f", sum.DailyPnLUSD)
	}
	if sum.DailyLossUSD != 10.5 {
		t.Errorf("expected daily loss 10.5, got %f", sum.DailyLossUSD)
	}
	if got := s.WalletBalanceUSD(); got != 1020.0 {
		t.Errorf("expected wallet balance 1020.0, got %f", got)
	}
}

func TestWinRate(t *testing.T) {
	s := New("demo_wallet", 1000)

	if wr := s.PortfolioSummary().WinRatePct; wr != 0 {
		t.Errorf("expected win rate 0 with empty ledger, got %f", wr)
	}

	// 3 winners, 1 loser, 1 breakeven -> 3/5 = 60%
	for _, p := range []float64{10, 5, 1, -3, 0} {
		s.AppendCompletedTrade(types.TradeRecord{PnLUSD: p})
	}
	if wr := s.PortfolioSummary().WinRatePct; wr != 60.0 {
		t.Errorf("expected win rate 60.0, got %f", wr)
	}
}

func TestTradeIDsUnique(t *testing.T) {
	s := New("demo_wallet", 1000)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 500; i++ {
		tr := s.AppendCompletedTrade(types.TradeRecord{PnLUSD: 1})
		if !strings.HasPrefix(tr.ID, "TRADE_") || len(tr.ID) != len("TRADE_")+32 {
			t.Fatalf("unexpected trade id format: %s", tr.ID)
		}
		if seen[tr.ID] {
			t.Fatalf("duplicate trade id %s", tr.ID)
		}
		seen[tr.ID] = true
	}
	for i := 0; i < 500; i++ {
		ft := s.AppendFailedTrade(types.FailedTradeRecord{Reason: "slippage"})
		if !strings.HasPrefix(ft.ID, "FAILED_") {
			t.Fatalf("unexpected failed trade id format: %s", ft.ID)
		}
		if seen[ft.ID] {
			t.Fatalf("duplicate failed trade id %s", ft.ID)
		}
		seen[ft.ID] = true
	}
	if len(seen) != 1000 {
		t.Errorf("expected 1000 distinct ids, got %d", len(seen))
	}
}

func TestFailedTradesDoNotAffectPnL(t *testing.T) {
	s := New("demo_wallet", 1000)
	s.AppendFailedTrade(types.FailedTradeRecord{Reason: "execution reverted"})

	sum := s.PortfolioSummary()
	if sum.TotalPnLUSD != 0 || sum.DailyPnLUSD != 0 || sum.DailyLossUSD != 0 {
		t.Errorf("failed trade changed pnl: %+v", sum)
	}
}

func TestResetDailyMetrics(t *testing.T) {
	s := New("demo_wallet", 1000)
	s.AppendCompletedTrade(types.TradeRecord{PnLUSD: -40})

	s.ResetDailyMetrics()

	sum := s.PortfolioSummary()
	if sum.DailyPnLUSD != 0 || sum.DailyLossUSD != 0 {
		t.Errorf("expected daily metrics zeroed, got %+v", sum)
	}
	if sum.TotalPnLUSD != -40 {
		t.Errorf("expected total pnl untouched, got %f", sum.TotalPnLUSD)
	}

	// Losses after the reset accumulate from zero again.
	s.AppendCompletedTrade(types.TradeRecord{PnLUSD: -7})
	if got := s.PortfolioSummary().DailyLossUSD; got != 7 {
		t.Errorf("expected daily loss 7 after reset, got %f", got)
	}
}

func TestNoTornReadsDuringAppend(t *testing.T) {
	s := New("demo_wallet", 1000)

	const trades = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < trades; i++ {
			s.AppendCompletedTrade(types.TradeRecord{PnLUSD: 1})
		}
	}()

	// Every trade has pnl +1, so a consistent snapshot always has
	// total == daily. Observing them diverge means a torn read.
	for {
		sum := s.PortfolioSummary()
		if sum.TotalPnLUSD != sum.DailyPnLUSD {
			t.Fatalf("torn read: total=%f daily=%f", sum.TotalPnLUSD, sum.DailyPnLUSD)
		}
		select {
		case <-done:
			sum = s.PortfolioSummary()
			if sum.TotalPnLUSD != float64(trades) {
				t.Fatalf("expected final total %d, got %f", trades, sum.TotalPnLUSD)
			}
			return
		default:
		}
	}
}

func TestIncrementCycleClearsScratch(t *testing.T) {
	s := New("demo_wallet", 1000)

	s.RecordOpportunity(types.Opportunity{Symbol: "WIF"})
	s.RecordRiskAssessment(types.RiskAssessment{Approved: true})

	if n := s.IncrementCycle(); n != 1 {
		t.Errorf("expected cycle count 1, got %d", n)
	}
	if s.LastRunTime().IsZero() {
		t.Error("expected last run time to be stamped")
	}

	scratch := s.CurrentCycle()
	if scratch.SelectedOpportunity != nil || scratch.RiskCheckResult != nil {
		t.Error("expected scratch cleared at cycle start")
	}
}

func TestScratchOverwrite(t *testing.T) {
	s := New("demo_wallet", 1000)

	s.RecordOpportunity(types.Opportunity{Symbol: "WIF"})
	s.RecordOpportunity(types.Opportunity{Symbol: "BONK"})

	scratch := s.CurrentCycle()
	if scratch.SelectedOpportunity == nil || scratch.SelectedOpportunity.Symbol != "BONK" {
		t.Errorf("expected latest opportunity to win, got %+v", scratch.SelectedOpportunity)
	}
}

func TestPositions(t *testing.T) {
	s := New("demo_wallet", 1000)

	s.UpsertPosition(types.Position{
		TokenAddress:    "mint1",
		Symbol:          "WIF",
		Amount:          100,
		EntryPriceUSD:   2.0,
		CurrentPriceUSD: 2.0,
		EntryTime:       time.Now().UTC(),
	})
	s.MarkPosition("mint1", 2.5)

	snap := s.Snapshot()
	p, ok := snap.Positions["mint1"]
	if !ok {
		t.Fatal("expected position for mint1")
	}
	if p.UnrealizedPnLUSD != 50.0 {
		t.Errorf("expected unrealized pnl 50.0, got %f", p.UnrealizedPnLUSD)
	}

	sum := s.PortfolioSummary()
	if sum.PositionCount != 1 {
		t.Errorf("expected 1 position, got %d", sum.PositionCount)
	}
	if sum.TotalValueUSD != 250.0 {
		t.Errorf("expected portfolio value 250.0, got %f", sum.TotalValueUSD)
	}

	if _, ok := s.RemovePosition("mint1"); !ok {
		t.Fatal("expected to close mint1")
	}
	if _, ok := s.RemovePosition("mint1"); ok {
		t.Fatal("expected second close to report missing position")
	}
	if got := s.PortfolioSummary().PositionCount; got != 0 {
		t.Errorf("expected 0 positions after close, got %d", got)
	}
}

func TestDebitPosition(t *testing.T) {
	s := New("demo_wallet", 1000)
	s.UpsertPosition(types.Position{
		TokenAddress:    "USDC",
		Symbol:          "USDC",
		Amount:          100,
		EntryPriceUSD:   1,
		CurrentPriceUSD: 1,
	})

	s.DebitPosition("USDC", 40)
	if got := s.PortfolioSummary().TotalValueUSD; got != 60 {
		t.Errorf("expected portfolio value 60 after debit, got %f", got)
	}

	s.DebitPosition("missing", 10)
	if got := s.PortfolioSummary().TotalValueUSD; got != 60 {
		t.Errorf("debit of an unheld token must be a no-op, got %f", got)
	}

	s.DebitPosition("USDC", 60)
	if got := s.PortfolioSummary().PositionCount; got != 0 {
		t.Errorf("expected fully drawn-down position removed, got %d positions", got)
	}
}

func TestPerformanceMetrics(t *testing.T) {
	s := New("demo_wallet", 1000)

	m := s.PerformanceMetrics()
	if m.TotalTrades != 0 || m.ProfitFactor != nil {
		t.Errorf("expected empty metrics with nil profit factor, got %+v", m)
	}

	for _, p := range []float64{10, 20, -5, -10} {
		s.AppendCompletedTrade(types.TradeRecord{PnLUSD: p})
	}

	m = s.PerformanceMetrics()
	if m.WinningTrades != 2 || m.LosingTrades != 2 {
		t.Fatalf("expected 2 winners and 2 losers, got %+v", m)
	}
	if m.AvgWinUSD != 15.0 {
		t.Errorf("expected avg win 15.0, got %f", m.AvgWinUSD)
	}
	if m.AvgLossUSD != 7.5 {
		t.Errorf("expected avg loss 7.5, got %f", m.AvgLossUSD)
	}
	if m.ProfitFactor == nil || *m.ProfitFactor != 2.0 {
		t.Errorf("expected profit factor 2.0, got %v", m.ProfitFactor)
	}

	// All winners: profit factor is undefined, not infinite.
	s.Reset(1000)
	s.AppendCompletedTrade(types.TradeRecord{PnLUSD: 5})
	m = s.PerformanceMetrics()
	if m.ProfitFactor != nil {
		t.Errorf("expected nil profit factor with no losers, got %v", m.ProfitFactor)
	}
}

func TestReadLimits(t *testing.T) {
	s := New("demo_wallet", 1000)
	for i := 0; i < 30; i++ {
		s.AppendCompletedTrade(types.TradeRecord{PnLUSD: float64(i)})
		s.LogError("stage failure")
	}

	if got := len(s.TradeHistory(10)); got != 10 {
		t.Errorf("expected 10 trades, got %d", got)
	}
	if got := len(s.TradeHistory(0)); got != 30 {
		t.Errorf("expected all 30 trades with no limit, got %d", got)
	}
	if got := len(s.Errors(5)); got != 5 {
		t.Errorf("expected 5 errors, got %d", got)
	}

	// Most recent entries are returned.
	last := s.TradeHistory(1)
	if len(last) != 1 || last[0].PnLUSD != 29 {
		t.Errorf("expected newest trade, got %+v", last)
	}
}

func TestReset(t *testing.T) {
	s := New("demo_wallet", 1000)
	s.AppendCompletedTrade(types.TradeRecord{PnLUSD: 10})
	s.IncrementCycle()
	s.UpsertPosition(types.Position{TokenAddress: "mint1", Amount: 1, CurrentPriceUSD: 1})
	s.LogError("boom")

	s.Reset(500)

	snap := s.Snapshot()
	if snap.WalletAddress != "demo_wallet" {
		t.Errorf("expected wallet identity kept, got %s", snap.WalletAddress)
	}
	if snap.WalletBalanceUSD != 500 {
		t.Errorf("expected balance 500, got %f", snap.WalletBalanceUSD)
	}
	if snap.CycleCount != 0 || snap.TotalPnLUSD != 0 || len(snap.Trades) != 0 ||
		len(snap.Positions) != 0 || len(snap.Errors) != 0 {
		t.Errorf("expected empty state after reset, got %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("demo_wallet", 1000)
	s.AppendCompletedTrade(types.TradeRecord{PnLUSD: 1})

	snap := s.Snapshot()
	snap.Trades[0].PnLUSD = 999
	snap.Positions["mint1"] = types.Position{}

	if got := s.PortfolioSummary().TotalPnLUSD; got != 1 {
		t.Errorf("snapshot mutation leaked into store: %f", got)
	}
	if got := s.Snapshot(); len(got.Positions) != 0 {
		t.Error("snapshot positions map is shared with store")
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := New("demo_wallet", 1000)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.AppendCompletedTrade(types.TradeRecord{PnLUSD: -1})
			}
		}()
	}
	wg.Wait()

	sum := s.PortfolioSummary()
	if sum.TotalPnLUSD != -800 {
		t.Errorf("expected total pnl -800, got %f", sum.TotalPnLUSD)
	}
	if sum.DailyLossUSD != 800 {
		t.Errorf("expected daily loss 800, got %f", sum.DailyLossUSD)
	}
	if got := len(s.TradeHistory(0)); got != 800 {
		t.Errorf("expected 800 trades, got %d", got)
	}
}
