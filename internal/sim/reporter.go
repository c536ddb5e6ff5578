package sim

import (
	"context"
	"fmt"
	"time"

	"quantai-bot/internal/types"
)

// Reporter renders a finished attempt into an announcement. Pure
// formatting, no state.
type Reporter struct{}

func NewReporter() *Reporter { return &Reporter{} }

func (r *Reporter) Announce(_ context.Context, opp types.Opportunity, exec types.ExecutionResult) (types.Announcement, error) {
	a := types.Announcement{Timestamp: time.Now().UTC()}
	if exec.Success {
		a.Headline = fmt.Sprintf("Executed %s swap for $%.2f", opp.Symbol, exec.AmountUSD)
		a.Body = fmt.Sprintf(
			"%s (%s) scored %.0f. Filled at $%.6f with %.2f%% slippage, resolved at $%.6f for %+.2f realized. Tx %s",
			opp.Name, opp.Symbol, opp.Score,
			exec.FillPriceUSD, exec.SlippagePct, exec.ExitPriceUSD, exec.RealizedPnLUSD,
			exec.TxSignature,
		)
	} else {
		a.Headline = fmt.Sprintf("Attempted %s swap, not filled", opp.Symbol)
		a.Body = fmt.Sprintf("%s (%s) scored %.0f but execution failed: %s",
			opp.Name, opp.Symbol, opp.Score, exec.Err)
	}
	return a, nil
}
