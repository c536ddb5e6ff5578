package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quantai-bot/internal/types"

	"github.com/shopspring/decimal"
)

// swapFeePct approximates venue fees plus priority fee, taken off the
// resolved exit value.
var swapFeePct = decimal.NewFromFloat(0.3)

// BalanceSource exposes the wallet's spendable balance.
type BalanceSource interface {
	WalletBalanceUSD() float64
}

// ExecutorConfig holds the venue-side limits the executor enforces before
// attempting a swap.
type ExecutorConfig struct {
	MaxSlippagePct     float64
	MaxPositionSizePct float64
	DryRun             bool
}

// Executor simulates fills against a Solana swap venue. Every accepted
// request fills at the quote plus a random slippage within the allowed
// bound, then resolves an exit price with bounded drift; realized P&L is
// the exited value minus cost and fees, computed in decimal. Winning fills
// keep a fraction of the tokens open as a runner position.
type Executor struct {
	mu      sync.Mutex
	rng     *rand.Rand
	cfg     ExecutorConfig
	balance BalanceSource
}

func NewExecutor(cfg ExecutorConfig, balance BalanceSource, seed int64) *Executor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Executor{
		rng:     rand.New(rand.NewSource(seed)),
		cfg:     cfg,
		balance: balance,
	}
}

func (e *Executor) Execute(_ context.Context, req types.SwapRequest) (types.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := types.ExecutionResult{
		InputToken:  req.InputToken,
		OutputToken: req.OutputToken,
		AmountUSD:   req.AmountUSD,
	}

	if !e.cfg.DryRun {
		res.Err = "live execution is not wired to a venue; run in DRY_RUN mode"
		return res, nil
	}
	if req.AmountUSD <= 0 {
		res.Err = fmt.Sprintf("invalid swap amount %.2f", req.AmountUSD)
		return res, nil
	}
	if req.QuotePriceUSD <= 0 {
		res.Err = fmt.Sprintf("invalid quote price %.6f", req.QuotePriceUSD)
		return res, nil
	}
	if req.MaxSlippagePct > e.cfg.MaxSlippagePct {
		res.Err = fmt.Sprintf("requested slippage %.2f%% exceeds maximum %.2f%%", req.MaxSlippagePct, e.cfg.MaxSlippagePct)
		return res, nil
	}
	maxPosition := e.balance.WalletBalanceUSD() * e.cfg.MaxPositionSizePct / 100
	if req.AmountUSD > maxPosition {
		res.Err = fmt.Sprintf("position %.2f exceeds %.2f%% of wallet balance (max %.2f)", req.AmountUSD, e.cfg.MaxPositionSizePct, maxPosition)
		return res, nil
	}

	// Fill at the quote plus random slippage within the requested bound.
	slippagePct := e.rng.Float64() * req.MaxSlippagePct
	quote := decimal.NewFromFloat(req.QuotePriceUSD)
	fill := quote.Mul(decimal.NewFromFloat(1 + slippagePct/100))
	amount := decimal.NewFromFloat(req.AmountUSD)
	tokens := amount.Div(fill)

	// Price resolution: the simulated market drifts between -6% and +9%
	// before the exit, skewed slightly positive so the strategy has edge.
	driftPct := decimal.NewFromFloat(-6 + e.rng.Float64()*15)
	exit := fill.Mul(decimal.NewFromFloat(1).Add(driftPct.Div(decimal.NewFromInt(100))))

	// Winning fills leave 20% open as a runner; everything else exits flat.
	exitFraction := decimal.NewFromInt(1)
	var remainder decimal.Decimal
	if exit.GreaterThan(fill) {
		exitFraction = decimal.NewFromFloat(0.8)
		remainder = tokens.Mul(decimal.NewFromFloat(0.2))
	}

	exited := tokens.Mul(exitFraction)
	proceeds := exited.Mul(exit)
	fees := proceeds.Mul(swapFeePct).Div(decimal.NewFromInt(100))
	cost := exited.Mul(fill)
	pnl := proceeds.Sub(fees).Sub(cost)

	res.Success = true
	res.TxSignature = e.randomSignature()
	res.FillPriceUSD = fill.InexactFloat64()
	res.SlippagePct = slippagePct
	res.ExitPriceUSD = exit.InexactFloat64()
	res.RealizedPnLUSD = pnl.Round(6).InexactFloat64()
	res.RemainderTokens = remainder.InexactFloat64()
	return res, nil
}

func (e *Executor) randomSignature() string {
	b := make([]byte, 88)
	for i := range b {
		b[i] = base58Alphabet[e.rng.Intn(len(base58Alphabet))]
	}
	return string(b)
}
