package notify

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/arbstack/flasharb/internal/domain"
)

// FormatAttempt renders an execution result as a notification. It returns
// the event type plus the title and message body to deliver. Amount fields
// may be nil on results built from abort paths; they render as zero.
func FormatAttempt(res domain.ExecutionResult) (event, title, message string) {
	if res.Succeeded {
		return EventSettled,
			fmt.Sprintf("Settled: %s", res.Kind),
			fmt.Sprintf("request %s\nprofit %s\nlegs %d", res.RequestID, bigOrZero(res.Profit), res.LegCount)
	}
	return EventAborted,
		fmt.Sprintf("Aborted: %s (%s)", res.Kind, res.Reason),
		fmt.Sprintf("request %s\namount_in %s\nlegs %d", res.RequestID, decOrZero(res.AmountIn), res.LegCount)
}

func decOrZero(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func bigOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
