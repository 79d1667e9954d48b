package outbox

// Outbox row statuses shared by the storage adapters and the worker relay.
// Rows are written inside the same DB transaction as state changes; the relay
// reads pending rows and publishes them to the message bus.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
