package pipeline

import (
	"context"
	"fmt"
	"time"

	"quantai-bot/internal/interfaces"
	"quantai-bot/internal/state"
	"quantai-bot/internal/types"
)

// Journal is the optional persistence sink for finished cycles and trades.
type Journal interface {
	AppendTrade(t types.TradeRecord) error
	AppendFailedTrade(t types.FailedTradeRecord) error
	AppendCycle(r types.CycleReport) error
}

// Config carries the immutable per-run inputs the pipeline consumes.
type Config struct {
	BaseToken         string
	MarketCondition   string
	MaxSlippagePct    float64
	DailyLossLimitUSD float64
}

// Pipeline drives one evaluation cycle through the stage evaluators in
// fixed order with veto short-circuiting. Evaluator failures are contained
// at the stage boundary: logged, recorded as a negative result, and the
// cycle proceeds to DONE instead of crashing.
type Pipeline struct {
	store     *state.Store
	discovery interfaces.Discovery
	riskGate  interfaces.RiskGate
	approval  interfaces.ApprovalGate
	executor  interfaces.Executor
	reporter  interfaces.Reporter
	journal   Journal
	cfg       Config
}

func New(
	store *state.Store,
	discovery interfaces.Discovery,
	riskGate interfaces.RiskGate,
	approval interfaces.ApprovalGate,
	executor interfaces.Executor,
	reporter interfaces.Reporter,
	journal Journal,
	cfg Config,
) *Pipeline {
	if cfg.BaseToken == "" {
		cfg.BaseToken = "USDC"
	}
	if cfg.MarketCondition == "" {
		cfg.MarketCondition = "neutral"
	}
	return &Pipeline{
		store:     store,
		discovery: discovery,
		riskGate:  riskGate,
		approval:  approval,
		executor:  executor,
		reporter:  reporter,
		journal:   journal,
		cfg:       cfg,
	}
}

var _ interfaces.Pipeline = (*Pipeline)(nil)

// RunCycle executes one full cycle. The returned error is always nil today;
// stage failures are contained and visible in the report.
func (p *Pipeline) RunCycle(ctx context.Context) (types.CycleReport, error) {
	report := types.CycleReport{
		Cycle:     p.store.IncrementCycle(),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.FinishedAt = time.Now().UTC()
		if p.journal != nil {
			if err := p.journal.AppendCycle(report); err != nil {
				p.store.LogError(fmt.Sprintf("cycle %d: journal write failed: %v", report.Cycle, err))
			}
		}
	}()

	// DISCOVERY
	opps, err := p.discovery.FindOpportunities(ctx, p.cfg.MarketCondition)
	if err != nil {
		p.store.LogError(fmt.Sprintf("cycle %d: discovery failed: %v", report.Cycle, err))
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageDiscovery, Err: err.Error(),
		})
		report.Outcome = types.OutcomeDiscoveryError
		return report, nil
	}
	if len(opps) == 0 {
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageDiscovery, OK: true, Detail: "no opportunities found",
		})
		report.Outcome = types.OutcomeNoOpportunities
		return report, nil
	}
	opp := opps[0]
	p.store.RecordOpportunity(opp)
	report.Stages = append(report.Stages, types.StageOutcome{
		Stage: types.StageDiscovery, OK: true,
		Detail: fmt.Sprintf("selected %s (score %.0f) of %d candidates", opp.Symbol, opp.Score, len(opps)),
	})

	// RISK_GATE
	assessment, err := p.riskGate.Assess(ctx, opp)
	if err != nil {
		p.store.LogError(fmt.Sprintf("cycle %d: risk gate failed: %v", report.Cycle, err))
		assessment = types.RiskAssessment{
			Approved: false,
			Reason:   fmt.Sprintf("risk gate error: %v", err),
		}
		p.store.RecordRiskAssessment(assessment)
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageRiskGate, Err: err.Error(),
		})
		report.Outcome = types.OutcomeVetoed
		return report, nil
	}
	p.store.RecordRiskAssessment(assessment)
	if !assessment.Approved {
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageRiskGate, OK: true, Detail: "veto: " + assessment.Reason,
		})
		report.Outcome = types.OutcomeVetoed
		return report, nil
	}
	report.Stages = append(report.Stages, types.StageOutcome{
		Stage: types.StageRiskGate, OK: true,
		Detail: fmt.Sprintf("approved, risk score %.0f", assessment.RiskScore),
	})

	// APPROVAL_GATE
	summary := p.store.PortfolioSummary()
	decision, err := p.approval.Decide(ctx, opp, assessment, summary, p.cfg.DailyLossLimitUSD)
	if err != nil {
		p.store.LogError(fmt.Sprintf("cycle %d: approval gate failed: %v", report.Cycle, err))
		decision = types.ExecutiveDecision{
			Verdict:   types.VerdictNoGo,
			Rationale: fmt.Sprintf("approval gate error: %v", err),
		}
		p.store.RecordDecision(decision)
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageApprovalGate, Err: err.Error(),
		})
		report.Outcome = types.OutcomeNoGo
		return report, nil
	}
	p.store.RecordDecision(decision)
	if decision.Verdict != types.VerdictGo {
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageApprovalGate, OK: true, Detail: "no-go: " + decision.Rationale,
		})
		report.Outcome = types.OutcomeNoGo
		return report, nil
	}
	report.Stages = append(report.Stages, types.StageOutcome{
		Stage: types.StageApprovalGate, OK: true,
		Detail: fmt.Sprintf("go, sized %.2f", decision.PositionSizeUSD),
	})

	// EXECUTION
	req := types.SwapRequest{
		InputToken:     p.cfg.BaseToken,
		OutputToken:    opp.TokenAddress,
		Symbol:         opp.Symbol,
		AmountUSD:      decision.PositionSizeUSD,
		QuotePriceUSD:  opp.PriceUSD,
		MaxSlippagePct: p.cfg.MaxSlippagePct,
	}
	result, err := p.executor.Execute(ctx, req)
	if err != nil {
		p.store.LogError(fmt.Sprintf("cycle %d: executor failed: %v", report.Cycle, err))
		result = types.ExecutionResult{
			InputToken:  req.InputToken,
			OutputToken: req.OutputToken,
			AmountUSD:   req.AmountUSD,
			Err:         err.Error(),
		}
	}
	p.store.RecordExecution(result)

	if result.Success {
		trade := p.store.AppendCompletedTrade(types.TradeRecord{
			TokenAddress: opp.TokenAddress,
			Symbol:       opp.Symbol,
			TxSignature:  result.TxSignature,
			AmountUSD:    result.AmountUSD,
			PnLUSD:       result.RealizedPnLUSD,
		})
		report.TradeID = trade.ID
		if result.RemainderTokens > 0 {
			p.store.UpsertPosition(types.Position{
				TokenAddress:    opp.TokenAddress,
				Symbol:          opp.Symbol,
				Amount:          result.RemainderTokens,
				EntryPriceUSD:   result.FillPriceUSD,
				EntryTime:       trade.Timestamp,
				CurrentPriceUSD: result.ExitPriceUSD,
			})
			// The capital staying deployed leaves the cash position so
			// portfolio value does not count it twice.
			p.store.DebitPosition(p.cfg.BaseToken, result.RemainderTokens*result.FillPriceUSD)
		}
		if p.journal != nil {
			if err := p.journal.AppendTrade(trade); err != nil {
				p.store.LogError(fmt.Sprintf("cycle %d: trade journal write failed: %v", report.Cycle, err))
			}
		}
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageExecution, OK: true,
			Detail: fmt.Sprintf("filled for %.2f, pnl %+.2f", result.AmountUSD, result.RealizedPnLUSD),
		})
	} else {
		failed := p.store.AppendFailedTrade(types.FailedTradeRecord{
			TokenAddress: opp.TokenAddress,
			Symbol:       opp.Symbol,
			Reason:       result.Err,
		})
		if p.journal != nil {
			if err := p.journal.AppendFailedTrade(failed); err != nil {
				p.store.LogError(fmt.Sprintf("cycle %d: failed-trade journal write failed: %v", report.Cycle, err))
			}
		}
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageExecution, Err: result.Err,
		})
	}

	// REPORTING: best effort, never blocks the cycle outcome.
	announcement, err := p.reporter.Announce(ctx, opp, result)
	if err != nil {
		p.store.LogError(fmt.Sprintf("cycle %d: reporter failed: %v", report.Cycle, err))
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageReporting, Err: err.Error(),
		})
	} else {
		p.store.RecordAnnouncement(announcement)
		report.Stages = append(report.Stages, types.StageOutcome{
			Stage: types.StageReporting, OK: true, Detail: announcement.Headline,
		})
	}

	report.Outcome = types.OutcomeCompleted
	return report, nil
}
