// Package queue implements the single-consumer priority-aware buffer that
// serializes every inbound request into one assistant invocation at a time.
//
// The wake primitive is a sync.Cond guarding a plain slice deque.
// Cond.Wait is always called
// inside a "recheck the predicate in a loop" pattern, which is what makes
// the wake coalescing: a Signal delivered before anyone is waiting is never
// lost, because the durable state (a non-empty deque) is what Wait rechecks
// after waking, not the signal itself.
package queue

// Metadata carries the optional, channel-specific fields a Request may
// arrive with.
type Metadata struct {
	CallSid          string
	DiscordChannelID string
	WorkflowID       string
	Context          string
}

// CallbackType names where a worker should deliver its response out of
// band, in addition to the reply sink.
type CallbackType string

const (
	CallbackDiscord CallbackType = "discord"
	CallbackWebhook CallbackType = "webhook"
)

// Callback describes an out-of-band delivery destination for a response.
type Callback struct {
	Type CallbackType
	URL  string
}

// Request is a single user-submitted chat turn.
type Request struct {
	Message  string
	Channel  string
	Sender   string
	Metadata Metadata
	Callback *Callback
}

// QueuedRequest is a Request once it has entered the queue: it carries the
// precomputed prompt and the one-shot reply sink the producer is blocked
// on. Reply has capacity 1; the worker must send to it exactly once, and
// the send must never block even if the producer has given up — Reply is
// always drained via a buffered channel, never a direct handoff.
type QueuedRequest struct {
	Request
	Prompt string
	Reply  chan string
}

// NewQueuedRequest wraps req with its prompt and a fresh one-shot reply
// sink.
func NewQueuedRequest(req Request, prompt string) *QueuedRequest {
	return &QueuedRequest{
		Request: req,
		Prompt:  prompt,
		Reply:   make(chan string, 1),
	}
}

// Deliver sends resp on qr.Reply exactly once. Safe to call even if no one
// is ever listening — the channel's buffer absorbs it silently.
func (qr *QueuedRequest) Deliver(resp string) {
	select {
	case qr.Reply <- resp:
	default:
		// Reply already has a buffered value (double-delivery bug in the
		// caller) or the buffer is full; never block the worker on a
		// producer that has given up.
	}
}
