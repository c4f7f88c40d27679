// Package chat implements the conversational order flow: intent
// classification, product resolution, order negotiation and the
// rendering of negotiation outcomes.
package chat

import "strings"

// Intent classifies a chat turn relative to the session's pending order.
type Intent int

const (
	// IntentNewQuery routes the turn to the general assistant path.
	IntentNewQuery Intent = iota
	// IntentConfirmation confirms the pending order.
	IntentConfirmation
	// IntentRejection cancels the pending order.
	IntentRejection
)

// String returns the intent name for logging and metrics labels.
func (i Intent) String() string {
	switch i {
	case IntentConfirmation:
		return "confirmation"
	case IntentRejection:
		return "rejection"
	default:
		return "new_query"
	}
}

var confirmationKeywords = []string{
	"yes", "confirm", "ok", "okay", "sure", "proceed", "do it", "yep", "yeah",
}

var rejectionKeywords = []string{
	"no", "cancel", "stop", "nevermind", "never mind", "nope", "nah", "don't",
}

// Classify decides whether free text confirms or rejects the pending
// order, or is a new query. Without a pending order every turn is a
// new query. Matching is case-insensitive substring containment.
// Rejection keywords are checked before confirmation keywords, so a
// message matching both sets ("no, okay then") counts as a rejection:
// cancelling by mistake is recoverable, committing by mistake is not.
func Classify(text string, hasPending bool) Intent {
	if !hasPending {
		return IntentNewQuery
	}

	lower := strings.ToLower(text)
	for _, kw := range rejectionKeywords {
		if strings.Contains(lower, kw) {
			return IntentRejection
		}
	}
	for _, kw := range confirmationKeywords {
		if strings.Contains(lower, kw) {
			return IntentConfirmation
		}
	}
	return IntentNewQuery
}
