package core

import (
	"sync"
	"time"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
)

// PendingEntry is the sender-side record tracking a single in-flight
// Multicast: which recipients have acknowledged it, and how many retry
// attempts remain. Its state machine is
// Fresh -> (Waiting <-> Retrying)* -> (Completed | Abandoned).
type PendingEntry struct {
	Message      types.Message
	FirstSentAt  time.Time
	AcksReceived map[int]struct{}
	RetryCount   int
}

func newPendingEntry(m types.Message, at time.Time) *PendingEntry {
	return &PendingEntry{
		Message:      m,
		FirstSentAt:  at,
		AcksReceived: make(map[int]struct{}),
	}
}

// complete reports whether every required recipient has acknowledged.
func (p *PendingEntry) complete() bool {
	if len(p.AcksReceived) < len(p.Message.Recipients) {
		return false
	}
	for _, r := range p.Message.Recipients {
		if _, ok := p.AcksReceived[r]; !ok {
			return false
		}
	}
	return true
}

// pendingTable is the sender-side table of PendingEntry keyed by message
// id, guarded by a single mutex: the entire ack-arrival update and the
// entire timeout sweep each hold the lock for their full critical
// section, releasing it before any transport I/O.
type pendingTable struct {
	mu      sync.Mutex
	entries map[types.ID]*PendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[types.ID]*PendingEntry)}
}

// install records m as in-flight. A message with no recipients has
// nothing to ack, so it is never entered into the table: it must not ride
// the timeout sweep into abandonment.
func (t *pendingTable) install(m types.Message, at time.Time) {
	if len(m.Recipients) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[m.MessageID] = newPendingEntry(m, at)
}

// ack records an ack from sender against original, removing the entry once
// every recipient has acknowledged. existed reports whether a pending
// entry for original was found at all; an ack for a nonexistent or
// already-completed send is simply ignored.
func (t *pendingTable) ack(original types.ID, sender int) (existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[original]
	if !ok {
		return false
	}
	p.AcksReceived[sender] = struct{}{}
	if p.complete() {
		delete(t.entries, original)
	}
	return true
}

// retryJob is a plain snapshot of the work a timeout sweep found: which
// message to resend and to which recipients specifically (those that
// haven't acked yet). It carries no pointer back into the table, so the
// caller can act on it after the table lock is released without racing a
// concurrent ack arrival mutating the same PendingEntry.
type retryJob struct {
	Message           types.Message
	MissingRecipients []int
}

// sweepDue returns, under one lock hold, the entries whose ack timeout has
// elapsed, split into those still eligible for retry and those whose
// retry budget is exhausted. Exhausted entries are removed from the table
// as part of this call: a PendingEntry exits the table exactly once.
func (t *pendingTable) sweepDue(now time.Time, timeout time.Duration, maxRetries int) (retry []retryJob, abandoned []types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.entries {
		if now.Sub(p.FirstSentAt) <= timeout {
			continue
		}
		if p.RetryCount < maxRetries {
			p.RetryCount++
			p.FirstSentAt = now
			var missing []int
			for _, r := range p.Message.Recipients {
				if _, acked := p.AcksReceived[r]; !acked {
					missing = append(missing, r)
				}
			}
			retry = append(retry, retryJob{Message: p.Message, MissingRecipients: missing})
		} else {
			delete(t.entries, id)
			abandoned = append(abandoned, p.Message)
		}
	}
	return retry, abandoned
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
