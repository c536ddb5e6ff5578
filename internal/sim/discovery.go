package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quantai-bot/internal/ta"
	"quantai-bot/internal/types"
)

var tokenNames = []struct {
	symbol, name string
}{
	{"BONK", "Bonk"},
	{"WIF", "dogwifhat"},
	{"POPCAT", "Popcat"},
	{"MEW", "cat in a dogs world"},
	{"GIGA", "Gigachad"},
	{"PNUT", "Peanut the Squirrel"},
	{"FWOG", "Fwog"},
	{"MOODENG", "Moo Deng"},
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Discovery is the simulated market scanner. Each call synthesizes a small
// batch of token candidates, scores them from short-horizon momentum and
// RSI over a generated candle series, and returns them best first. Roughly
// one call in four surfaces nothing, which mirrors quiet market windows.
type Discovery struct {
	mu            sync.Mutex
	rng           *rand.Rand
	maxCandidates int
}

// NewDiscovery seeds the scanner. seed 0 means nondeterministic.
func NewDiscovery(seed int64, maxCandidates int) *Discovery {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	return &Discovery{
		rng:           rand.New(rand.NewSource(seed)),
		maxCandidates: maxCandidates,
	}
}

func (d *Discovery) FindOpportunities(_ context.Context, condition string) ([]types.Opportunity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rng.Float64() < 0.25 {
		return nil, nil
	}

	n := 1 + d.rng.Intn(d.maxCandidates)
	opps := make([]types.Opportunity, 0, n)
	for i := 0; i < n; i++ {
		opps = append(opps, d.synthesize(condition))
	}
	sort.Slice(opps, func(i, j int) bool { return opps[i].Score > opps[j].Score })
	return opps, nil
}

func (d *Discovery) synthesize(condition string) types.Opportunity {
	tok := tokenNames[d.rng.Intn(len(tokenNames))]
	price := 0.00005 + d.rng.Float64()*2.5

	// Random-walk candle closes with a condition-dependent drift.
	drift := 0.0
	switch condition {
	case "bullish":
		drift = 0.004
	case "bearish":
		drift = -0.004
	}
	closes := make([]float64, 30)
	closes[0] = price
	for i := 1; i < len(closes); i++ {
		closes[i] = closes[i-1] * (1 + drift + (d.rng.Float64()-0.5)*0.06)
	}

	rsi := ta.RSI(closes, 14)
	mom := ta.Momentum(closes, 10)
	vol := ta.StdDev(closes, 20) / ta.SMA(closes, 20) * 100

	// Momentum carries the score; overbought RSI and choppy price action
	// drag it back down.
	score := 50 + mom*2
	if rsi > 75 {
		score -= (rsi - 75) * 1.5
	}
	if vol > 8 {
		score -= (vol - 8) * 2
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	liquidity := 5_000 + d.rng.Float64()*500_000
	return types.Opportunity{
		TokenAddress: d.randomMint(),
		Symbol:       tok.symbol,
		Name:         tok.name,
		Score:        score,
		Rationale:    fmt.Sprintf("10-bar momentum %+.1f%%, RSI %.0f", mom, rsi),
		PriceUSD:     closes[len(closes)-1],
		LiquidityUSD: liquidity,
		Volume24hUSD: liquidity * (0.2 + d.rng.Float64()*8),
		MarketCapUSD: 50_000 + d.rng.Float64()*80_000_000,
		HolderCount:  10 + d.rng.Intn(20_000),
		TopHolderPct: d.rng.Float64() * 60,
		DiscoveredAt: time.Now().UTC(),
	}
}

func (d *Discovery) randomMint() string {
	b := make([]byte, 44)
	for i := range b {
		b[i] = base58Alphabet[d.rng.Intn(len(base58Alphabet))]
	}
	return string(b)
}
