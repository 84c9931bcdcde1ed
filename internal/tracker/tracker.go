// Package tracker maintains the live and recently-completed request
// records the operational surface (status endpoint, alert loop, terminal
// monitor) reads from.
package tracker

import (
	"sync"
	"time"

	"github.com/dnacenta/bridge-echo/internal/chunk"
)

// MaxCompleted bounds the retained completed-request history; the oldest
// entry is evicted once this is exceeded.
const MaxCompleted = 50

const previewBytes = 80

// activeRequest is the mutable record of a request still being processed.
type activeRequest struct {
	id             uint64
	channel        string
	sender         string
	messagePreview string
	startedAt      time.Time
	startedUnix    int64
	alertsSent     map[int]bool
}

// ActiveView is an immutable snapshot of an in-flight request, safe to
// serialize to JSON.
type ActiveView struct {
	ID             uint64 `json:"id"`
	Channel        string `json:"channel"`
	Sender         string `json:"sender"`
	MessagePreview string `json:"message_preview"`
	StartedUnix    int64  `json:"started_unix"`
	ElapsedSecs    int64  `json:"elapsed_secs"`
}

// CompletedView is an immutable record of a finished request.
type CompletedView struct {
	ID              uint64 `json:"id"`
	Channel         string `json:"channel"`
	MessagePreview  string `json:"message_preview"`
	ResponsePreview string `json:"response_preview"`
	StartedUnix     int64  `json:"started_unix"`
	CompletedUnix   int64  `json:"completed_unix"`
	DurationSecs    int64  `json:"duration_secs"`
}

// AlertCandidate is the view the alert loop scans: one entry per active
// request, with the thresholds already reported against it.
type AlertCandidate struct {
	ID             uint64
	Channel        string
	MessagePreview string
	ElapsedSecs    int64
	AlertsSent     map[int]bool
}

// Tracker is the concurrent request-lifecycle store. Zero value is not
// usable; construct with New.
type Tracker struct {
	mu        sync.RWMutex
	nextID    uint64
	active    map[uint64]*activeRequest
	order     []uint64 // insertion order of active, for stable snapshots
	completed []CompletedView
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		active: make(map[uint64]*activeRequest),
	}
}

// Start records a new in-flight request and returns its id.
func (t *Tracker) Start(channel, sender, message string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	now := time.Now()
	t.active[id] = &activeRequest{
		id:             id,
		channel:        channel,
		sender:         sender,
		messagePreview: chunk.Preview(message, previewBytes),
		startedAt:      now,
		startedUnix:    now.Unix(),
		alertsSent:     make(map[int]bool),
	}
	t.order = append(t.order, id)
	return id
}

// Complete moves an in-flight request to the completed history. No-op if
// id is not active (already completed, or never started).
func (t *Tracker) Complete(id uint64, response string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.active[id]
	if !ok {
		return
	}
	delete(t.active, id)
	t.removeFromOrder(id)

	now := time.Now()
	t.completed = append(t.completed, CompletedView{
		ID:              id,
		Channel:         req.channel,
		MessagePreview:  req.messagePreview,
		ResponsePreview: chunk.Preview(response, previewBytes),
		StartedUnix:     req.startedUnix,
		CompletedUnix:   now.Unix(),
		DurationSecs:    int64(now.Sub(req.startedAt).Seconds()),
	})

	if over := len(t.completed) - MaxCompleted; over > 0 {
		t.completed = t.completed[over:]
	}
}

func (t *Tracker) removeFromOrder(id uint64) {
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// ActiveSnapshot returns an independent, JSON-serializable copy of every
// in-flight request, with elapsed time recomputed as of now.
func (t *Tracker) ActiveSnapshot() []ActiveView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	views := make([]ActiveView, 0, len(t.order))
	for _, id := range t.order {
		req := t.active[id]
		views = append(views, ActiveView{
			ID:             req.id,
			Channel:        req.channel,
			Sender:         req.sender,
			MessagePreview: req.messagePreview,
			StartedUnix:    req.startedUnix,
			ElapsedSecs:    int64(now.Sub(req.startedAt).Seconds()),
		})
	}
	return views
}

// CompletedSnapshot returns an independent copy of the completed history,
// oldest first.
func (t *Tracker) CompletedSnapshot() []CompletedView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]CompletedView, len(t.completed))
	copy(views, t.completed)
	return views
}

// MarkAlerted idempotently records that threshold (in minutes) has been
// reported for id. No-op if id is not active.
func (t *Tracker) MarkAlerted(id uint64, threshold int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if req, ok := t.active[id]; ok {
		req.alertsSent[threshold] = true
	}
}

// ActiveForAlerting returns the snapshot the alert loop scans.
func (t *Tracker) ActiveForAlerting() []AlertCandidate {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	candidates := make([]AlertCandidate, 0, len(t.order))
	for _, id := range t.order {
		req := t.active[id]
		sent := make(map[int]bool, len(req.alertsSent))
		for k := range req.alertsSent {
			sent[k] = true
		}
		candidates = append(candidates, AlertCandidate{
			ID:             req.id,
			Channel:        req.channel,
			MessagePreview: req.messagePreview,
			ElapsedSecs:    int64(now.Sub(req.startedAt).Seconds()),
			AlertsSent:     sent,
		})
	}
	return candidates
}

// ActiveCount returns the number of in-flight requests.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// HasActiveOnOtherChannel reports whether some active request belongs to
// sender on a channel other than channel. Used to decide priority enqueue
// for cross-channel continuity.
func (t *Tracker) HasActiveOnOtherChannel(sender, channel string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		req := t.active[id]
		if req.sender == sender && req.channel != channel {
			return true
		}
	}
	return false
}
