package domain

// TriggerReason records what caused a reconciliation request.
// Poll, webhook and manual triggers all converge on the same entry
// point; the reason tag exists for reporting, not for branching.
type TriggerReason string

const (
	// ReasonPoll is the periodic scheduler tick.
	ReasonPoll TriggerReason = "poll"

	// ReasonWebhook is a push notification from the source.
	ReasonWebhook TriggerReason = "webhook"

	// ReasonManual is an explicit caller request (CLI or MCP tool).
	ReasonManual TriggerReason = "manual"
)

// Trigger is a request to reconcile. Ephemeral; never persisted.
type Trigger struct {
	// Reason is what caused the request.
	Reason TriggerReason

	// Key scopes the run to a single post when non-empty.
	// Empty means a full reconciliation.
	Key string
}

// Scoped reports whether the trigger targets a single post.
func (t Trigger) Scoped() bool {
	return t.Key != ""
}
