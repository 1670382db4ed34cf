// Package core holds the reliable multicast engine: the ack/retry send
// path, the ordering queue on the receive path, the Lamport clock, the
// peer directory, and the framed transport.
package core

import (
	"sync"
	"time"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
)

// Default timeout/retry parameters.
const (
	DefaultAckTimeout = 5 * time.Second
	DefaultMaxRetries = 3
	timeoutLoopPeriod = 1 * time.Second
)

// Sender abstracts the transport + directory pair the engine sends
// through: resolve a peer id to an address and attempt delivery of one
// frame. It exists so the engine can be tested against a fake without a
// real socket.
type Sender interface {
	SendTo(message types.Message, peerID int) bool
}

// directorySender is the production Sender: resolve via Directory, send
// via Transport.
type directorySender struct {
	transport Transport
	directory *Directory
}

func (s directorySender) SendTo(message types.Message, peerID int) bool {
	return s.transport.Send(message, s.directory.Resolve(peerID))
}

// Engine is the reliable multicast engine: the send path (pending table,
// retries, ack fan-in) and the receive path (dedup, ack emission,
// ordering queue, delivery predicate), tied together by a periodic
// timeout loop.
type Engine struct {
	selfID    int
	clock     *Clock
	directory *Directory
	sender    Sender
	log       types.Logger

	pending *pendingTable
	queue   *orderingQueue

	seqMu   sync.Mutex
	nextSeq uint64

	ackTimeout time.Duration
	maxRetries int

	onDelivered func(types.Message)
	onFailed    func(types.Message)

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// EngineConfig bundles an Engine's tunables.
type EngineConfig struct {
	SelfID      int
	Clock       *Clock
	Directory   *Directory
	Transport   Transport
	Logger      types.Logger
	AckTimeout  time.Duration
	MaxRetries  int
	OnDelivered func(types.Message)
	OnFailed    func(types.Message)
}

// NewEngine builds and starts an Engine's background timeout loop.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	e := &Engine{
		selfID:      cfg.SelfID,
		clock:       cfg.Clock,
		directory:   cfg.Directory,
		sender:      directorySender{transport: cfg.Transport, directory: cfg.Directory},
		log:         cfg.Logger,
		pending:     newPendingTable(),
		queue:       newOrderingQueue(),
		ackTimeout:  cfg.AckTimeout,
		maxRetries:  cfg.MaxRetries,
		onDelivered: cfg.OnDelivered,
		onFailed:    cfg.OnFailed,
		stopCh:      make(chan struct{}),
	}
	e.wg.Add(1)
	go e.timeoutLoop()
	return e
}

// nextSequence assigns this peer's next per-sender sequence number.
// Sequence numbers are diagnostic only: the delivery predicate never
// inspects them.
func (e *Engine) nextSequence() uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	seq := e.nextSeq
	e.nextSeq++
	return seq
}

// Multicast sends content to recipients. If recipients is nil, it expands
// to every known peer other than self. The local peer id is always
// excluded, since the transport has no loopback path to deliver a
// self-addressed frame.
func (e *Engine) Multicast(content string, recipients []int) types.ID {
	if recipients == nil {
		recipients = e.otherKnownPeers()
	} else {
		recipients = excludeSelf(recipients, e.selfID)
	}

	timestamp := e.clock.Tick()
	seq := e.nextSequence()
	message := types.NewMulticast(e.selfID, timestamp, content, recipients, seq)

	if len(recipients) == 0 {
		// No recipients to ack: complete immediately, never enters the
		// pending table, and is never retried or abandoned.
		return message.MessageID
	}

	e.pending.install(message, time.Now())

	for _, r := range recipients {
		recipient := r
		go func() {
			if !e.sender.SendTo(message, recipient) {
				e.log.Debugf("initial send of %s to peer %d failed; timeout loop will retry", message.MessageID, recipient)
			}
		}()
	}

	return message.MessageID
}

func (e *Engine) otherKnownPeers() []int {
	known := e.directory.Known()
	out := make([]int, 0, len(known))
	for _, id := range known {
		if id != e.selfID {
			out = append(out, id)
		}
	}
	return out
}

func excludeSelf(ids []int, self int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// HandleInbound implements the receive path.
func (e *Engine) HandleInbound(m types.Message) {
	if err := CheckProtocolVersion(types.ProtocolVersion, m.ProtocolVersion); err != nil {
		e.log.Warnf("dropping frame %s from peer %d: %v", m.MessageID, m.SenderID, err)
		return
	}

	e.clock.Update(m.Timestamp)

	switch m.Kind {
	case types.KindMulticast:
		e.handleMulticast(m)
	case types.KindAck:
		e.handleAck(m)
	default:
		e.log.Warnf("dropping message %s with unknown kind %q", m.MessageID, m.Kind)
	}
}

func (e *Engine) handleMulticast(m types.Message) {
	if e.directory.Learn(m.SenderID) {
		e.log.Debugf("learned peer %d from inbound multicast", m.SenderID)
	}

	if !e.queue.insert(m) {
		// Duplicate: already delivered or already queued. Dropped
		// silently, no re-ack.
		return
	}

	if m.RequiresAck {
		ack := types.NewAck(e.selfID, e.clock.Tick(), m.MessageID)
		sender := m.SenderID
		go func() {
			if !e.sender.SendTo(ack, sender) {
				e.log.Debugf("failed sending ack for %s to peer %d", m.MessageID, sender)
			}
		}()
	}

	e.queue.deliverReady(func(delivered types.Message) {
		if e.onDelivered != nil {
			e.onDelivered(delivered)
		}
	})
}

func (e *Engine) handleAck(ack types.Message) {
	if !e.pending.ack(ack.OriginalMessageID, ack.SenderID) {
		e.log.Debugf("ack for unknown or already-completed message %s ignored", ack.OriginalMessageID)
	}
}

// timeoutLoop is the periodic retry/abandon sweep.
func (e *Engine) timeoutLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(timeoutLoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			e.sweep(now)
		}
	}
}

func (e *Engine) sweep(now time.Time) {
	retry, abandoned := e.pending.sweepDue(now, e.ackTimeout, e.maxRetries)

	for _, job := range retry {
		job := job
		for _, recipient := range job.MissingRecipients {
			recipient := recipient
			go func() {
				if !e.sender.SendTo(job.Message, recipient) {
					e.log.Debugf("retry send of %s to peer %d failed", job.Message.MessageID, recipient)
				}
			}()
		}
	}

	for _, failed := range abandoned {
		if e.onFailed != nil {
			e.onFailed(failed)
		}
	}
}

// Stats is the engine-derived subset of the process facade's statistics
// surface.
type Stats struct {
	Lamport        uint64
	PendingCount   int
	QueueLen       int
	DeliveredCount int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Lamport:        e.clock.Read(),
		PendingCount:   e.pending.len(),
		QueueLen:       e.queue.length(),
		DeliveredCount: e.queue.deliveredCount(),
	}
}

// Stop ends the timeout loop. Outstanding PendingEntries are silently
// discarded; OnFailed is NOT invoked for them on shutdown.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	e.wg.Wait()
}
