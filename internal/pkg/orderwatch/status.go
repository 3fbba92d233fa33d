package orderwatch

import (
	"github.com/grimstore/grimstore/app/models"
)

// IsTerminal reports whether a status ends reconciliation.
func IsTerminal(status string) bool {
	return models.IsTerminalStatus(status)
}

// ApplyStatus folds one incoming status report into the current one,
// regardless of whether it arrived over the poll or the push channel.
// Terminal statuses never change again, unknown reports are dropped and
// re-delivery of the current status is a no-op.
func ApplyStatus(current, incoming string) (next string, changed bool) {
	if current == "" {
		current = models.ORDER_STATUS_PENDING
	}
	if models.IsTerminalStatus(current) {
		return current, false
	}
	if !models.IsKnownStatus(incoming) {
		return current, false
	}
	if incoming == current {
		return current, false
	}
	return incoming, true
}
