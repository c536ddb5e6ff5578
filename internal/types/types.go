package types

import "time"

// Verdict is the approval gate's final call on a cycle's candidate.
type Verdict string

const (
	VerdictGo   Verdict = "GO"
	VerdictNoGo Verdict = "NO_GO"
)

// Stage names as they appear in cycle reports.
const (
	StageDiscovery    = "DISCOVERY"
	StageRiskGate     = "RISK_GATE"
	StageApprovalGate = "APPROVAL_GATE"
	StageExecution    = "EXECUTION"
	StageReporting    = "REPORTING"
)

// Terminal outcomes of a cycle.
const (
	OutcomeNoOpportunities = "NO_OPPORTUNITIES"
	OutcomeVetoed          = "VETOED"
	OutcomeNoGo            = "NO_GO"
	OutcomeCompleted       = "COMPLETED"
	OutcomeDiscoveryError  = "DISCOVERY_ERROR"
)

// Opportunity is a candidate token surfaced by discovery. Read-only once
// selected for a cycle.
type Opportunity struct {
	TokenAddress string    `json:"token_address"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name,omitempty"`
	Score        float64   `json:"score"`
	Rationale    string    `json:"rationale"`
	PriceUSD     float64   `json:"price_usd"`
	LiquidityUSD float64   `json:"liquidity_usd"`
	Volume24hUSD float64   `json:"volume_24h_usd"`
	MarketCapUSD float64   `json:"market_cap_usd"`
	HolderCount  int       `json:"holder_count"`
	TopHolderPct float64   `json:"top_holder_pct"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

type RiskChecks struct {
	LiquidityOK     bool `json:"liquidity_ok"`
	HolderCountOK   bool `json:"holder_count_ok"`
	ConcentrationOK bool `json:"concentration_ok"`
}

type RiskAssessment struct {
	Approved  bool       `json:"approved"`
	RiskScore float64    `json:"risk_score"`
	Checks    RiskChecks `json:"checks"`
	Reason    string     `json:"reason"`
}

type ExecutiveDecision struct {
	Verdict         Verdict `json:"verdict"`
	Rationale       string  `json:"rationale"`
	PositionSizeUSD float64 `json:"position_size_usd,omitempty"`
}

// SwapRequest describes one attempted swap on the execution venue.
type SwapRequest struct {
	InputToken     string
	OutputToken    string
	Symbol         string
	AmountUSD      float64
	QuotePriceUSD  float64
	MaxSlippagePct float64
}

// ExecutionResult is the executor's outcome for one swap attempt. On
// success the executor also resolves an exit price for the filled amount,
// which is where RealizedPnLUSD comes from; RemainderTokens is any part of
// the fill intentionally left open as a position.
type ExecutionResult struct {
	Success         bool    `json:"success"`
	TxSignature     string  `json:"tx_signature,omitempty"`
	InputToken      string  `json:"input_token"`
	OutputToken     string  `json:"output_token"`
	AmountUSD       float64 `json:"amount_usd"`
	FillPriceUSD    float64 `json:"fill_price_usd,omitempty"`
	SlippagePct     float64 `json:"slippage_pct,omitempty"`
	ExitPriceUSD    float64 `json:"exit_price_usd,omitempty"`
	RealizedPnLUSD  float64 `json:"realized_pnl_usd,omitempty"`
	RemainderTokens float64 `json:"remainder_tokens,omitempty"`
	Err             string  `json:"error,omitempty"`
}

type TradeRecord struct {
	ID           string    `json:"id"`
	TokenAddress string    `json:"token_address"`
	Symbol       string    `json:"symbol"`
	TxSignature  string    `json:"tx_signature"`
	AmountUSD    float64   `json:"amount_usd"`
	PnLUSD       float64   `json:"pnl_usd"`
	Timestamp    time.Time `json:"timestamp"`
}

type FailedTradeRecord struct {
	ID           string    `json:"id"`
	TokenAddress string    `json:"token_address"`
	Symbol       string    `json:"symbol"`
	Reason       string    `json:"reason"`
	RetryCount   int       `json:"retry_count"`
	Timestamp    time.Time `json:"timestamp"`
}

type Position struct {
	TokenAddress     string    `json:"token_address"`
	Symbol           string    `json:"symbol"`
	Amount           float64   `json:"amount"`
	EntryPriceUSD    float64   `json:"entry_price_usd"`
	EntryTime        time.Time `json:"entry_time"`
	CurrentPriceUSD  float64   `json:"current_price_usd"`
	UnrealizedPnLUSD float64   `json:"unrealized_pnl_usd"`
}

type PortfolioSummary struct {
	PositionCount int     `json:"position_count"`
	TotalValueUSD float64 `json:"total_portfolio_value"`
	TotalPnLUSD   float64 `json:"total_pnl"`
	DailyPnLUSD   float64 `json:"daily_pnl"`
	DailyLossUSD  float64 `json:"daily_loss"`
	WinRatePct    float64 `json:"win_rate"`
}

type PerformanceMetrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRatePct    float64 `json:"win_rate"`
	AvgWinUSD     float64 `json:"avg_win"`
	AvgLossUSD    float64 `json:"avg_loss"`
	// ProfitFactor is nil when there are no losing trades.
	ProfitFactor *float64 `json:"profit_factor"`
}

type Announcement struct {
	Headline  string    `json:"headline"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

type StageOutcome struct {
	Stage  string `json:"stage"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Err    string `json:"error,omitempty"`
}

type CycleReport struct {
	Cycle      int            `json:"cycle"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Stages     []StageOutcome `json:"stages"`
	Outcome    string         `json:"outcome"`
	TradeID    string         `json:"trade_id,omitempty"`
}

// CycleScratch holds the latest per-stage outputs of the active cycle.
// Every field is overwritten as its stage completes and cleared when a new
// cycle starts.
type CycleScratch struct {
	SelectedOpportunity  *Opportunity       `json:"selected_opportunity"`
	RiskCheckResult      *RiskAssessment    `json:"risk_check_result"`
	SupervisorDecision   *ExecutiveDecision `json:"supervisor_decision"`
	TradeExecutionResult *ExecutionResult   `json:"trade_execution_result"`
	LastAnnouncement     *Announcement      `json:"last_announcement"`
}

type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// StateSnapshot is a flat lossless export of the portfolio state for
// external inspection.
type StateSnapshot struct {
	WalletAddress    string              `json:"wallet_address"`
	WalletBalanceUSD float64             `json:"wallet_balance_usd"`
	Positions        map[string]Position `json:"current_positions"`
	TotalPnLUSD      float64             `json:"total_pnl"`
	DailyPnLUSD      float64             `json:"daily_pnl"`
	DailyLossUSD     float64             `json:"daily_loss"`
	CycleCount       int                 `json:"cycle_count"`
	LastRunTime      time.Time           `json:"last_run_time"`
	Trades           []TradeRecord       `json:"completed_trades"`
	FailedTrades     []FailedTradeRecord `json:"failed_trades"`
	Errors           []ErrorEntry        `json:"errors"`
	Scratch          CycleScratch        `json:"current_cycle"`
}
