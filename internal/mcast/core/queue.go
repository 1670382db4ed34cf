package core

import (
	"sort"
	"sync"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
)

// orderingQueue is the receiver-side structure holding every Multicast
// from first receipt until delivery, plus the permanent DeliveredSet.
// Both are guarded by one lock: insertion, delivery predicate evaluation,
// removal, and DeliveredSet update all happen inside one critical
// section.
type orderingQueue struct {
	mu        sync.Mutex
	entries   []types.Message // sorted ascending by (Timestamp, SenderID)
	present   map[types.ID]struct{}
	delivered map[types.ID]struct{}
}

func newOrderingQueue() *orderingQueue {
	return &orderingQueue{
		present:   make(map[types.ID]struct{}),
		delivered: make(map[types.ID]struct{}),
	}
}

// alreadySeen reports whether m is delivered or already queued, the
// dedup-on-message-id rule.
func (q *orderingQueue) alreadySeen(id types.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.delivered[id]; ok {
		return true
	}
	_, ok := q.present[id]
	return ok
}

// insert places m in sorted position. Returns false if m was already
// present or already delivered (a no-op duplicate).
func (q *orderingQueue) insert(m types.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.delivered[m.MessageID]; ok {
		return false
	}
	if _, ok := q.present[m.MessageID]; ok {
		return false
	}

	idx := sort.Search(len(q.entries), func(i int) bool {
		return m.Precedes(q.entries[i])
	})
	q.entries = append(q.entries, types.Message{})
	copy(q.entries[idx+1:], q.entries[idx:])
	q.entries[idx] = m
	q.present[m.MessageID] = struct{}{}
	return true
}

// deliverReady runs the delivery predicate repeatedly: while the queue is
// non-empty, the minimum-keyed entry is delivered only if it is the
// unique minimum (no other entry shares its (timestamp, sender) key).
// deliver is invoked once per message, outside the lock.
func (q *orderingQueue) deliverReady(deliver func(types.Message)) {
	for {
		m, ok, again := q.popIfDeliverable()
		if ok {
			deliver(m)
			continue
		}
		if again {
			continue
		}
		return
	}
}

// popIfDeliverable evaluates the head of the queue once. It returns
// (message, true, _) when a message was popped and should be delivered;
// (_, false, true) when internal bookkeeping advanced and the caller
// should re-evaluate immediately without delivering anything; and
// (_, false, false) when the queue is empty or blocked on the predicate
// and the caller should stop.
func (q *orderingQueue) popIfDeliverable() (types.Message, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return types.Message{}, false, false
	}
	head := q.entries[0]
	if _, ok := q.delivered[head.MessageID]; ok {
		// Already delivered through some other path; drop it from the
		// queue without re-invoking the callback and keep going.
		q.entries = q.entries[1:]
		delete(q.present, head.MessageID)
		return types.Message{}, false, true
	}
	if len(q.entries) > 1 {
		next := q.entries[1]
		if head.Timestamp == next.Timestamp && head.SenderID == next.SenderID {
			return types.Message{}, false, false
		}
	}

	q.entries = q.entries[1:]
	delete(q.present, head.MessageID)
	q.delivered[head.MessageID] = struct{}{}
	return head, true, false
}

func (q *orderingQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *orderingQueue) deliveredCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.delivered)
}
