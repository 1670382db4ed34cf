// Package mcast is the process facade: it binds the Lamport clock, the
// message model, the framed transport, the peer directory, and the
// reliable multicast engine together into the single object an
// application or CLI actually drives.
package mcast

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/core"
	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
	"github.com/lucaslopes5988/lamport-mcast/internal/util"
)

// EventKind tags an entry in a Process's event log.
type EventKind string

const (
	EventSystem    EventKind = "SYSTEM"
	EventSend      EventKind = "SEND"
	EventDeliver   EventKind = "DELIVER"
	EventFailed    EventKind = "FAILED"
	EventDiscovery EventKind = "DISCOVERY"
)

// Event is one entry in the process facade's circular event log: a
// snapshot of wall-clock and Lamport time alongside a human-readable
// description.
type Event struct {
	WallTime    time.Time
	Lamport     uint64
	Kind        EventKind
	Description string
}

// Stats is the process-level statistics surface: current Lamport value,
// pending-ack count, ordering-queue length, delivered-message count, and
// known-peer count.
type Stats struct {
	Lamport          uint64
	PendingCount     int
	QueueLen         int
	DeliveredCount   int
	KnownPeersCount  int
}

// Process is the top-level facade an application drives: start/stop,
// multicast, peer registration, discovery, stats, and the event log.
type Process struct {
	id     int
	config *Configuration
	log    types.Logger

	clock     *core.Clock
	directory *core.Directory
	transport *core.TCPTransport
	engine    *core.Engine
	discovery *core.Discovery

	events *util.RingBuffer[Event]

	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

// NewProcess constructs a Process bound to config but does not start its
// network listener; call Start for that.
func NewProcess(config *Configuration) *Process {
	if config.Logger == nil {
		config.Logger = DefaultConfiguration(config.SelfID).Logger
	}
	if config.EventLogCapacity <= 0 {
		config.EventLogCapacity = 1000
	}
	return &Process{
		id:     config.SelfID,
		config: config,
		log:    config.Logger,
		clock:  core.NewClock(),
		events: util.NewRingBuffer[Event](config.EventLogCapacity),
	}
}

// ID returns this process's peer id.
func (p *Process) ID() int { return p.id }

// Start binds the transport, wires the engine, and records the given
// known peers at their default localhost:8000+id addresses (peers that
// listen elsewhere need RegisterPeer). A bind failure is returned to the
// caller and is fatal to this process; a configured port that cannot be
// bound is retried on the following ports, see bindWithRetry.
func (p *Process) Start(knownPeers []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	self := core.Address{Host: p.config.Host, Port: p.config.Port}
	p.directory = core.NewDirectory(p.id, self)
	for _, peerID := range knownPeers {
		if peerID == p.id {
			continue
		}
		p.directory.Learn(peerID)
	}

	transport, boundPort, err := p.bindWithRetry()
	if err != nil {
		return fmt.Errorf("mcast: failed to start process %d: %w", p.id, err)
	}
	p.config.Port = boundPort
	transport.SetTimeouts(p.config.ConnectTimeout, p.config.IOTimeout)
	p.transport = transport

	p.engine = core.NewEngine(core.EngineConfig{
		SelfID:      p.id,
		Clock:       p.clock,
		Directory:   p.directory,
		Transport:   p.transport,
		Logger:      p.log,
		AckTimeout:  p.config.AckTimeout,
		MaxRetries:  p.config.MaxRetries,
		OnDelivered: p.onDelivered,
		OnFailed:    p.onFailed,
	})
	p.discovery = core.NewDiscovery(p.id, p.directory)

	p.running = true
	p.startedAt = time.Now()
	p.logEvent(EventSystem, fmt.Sprintf("process %d started on %s", p.id, p.transport.LocalAddress()))
	return nil
}

// bindWithRetry binds the configured host/port, retrying on the next port
// up to a handful of times when the configured port is already in use.
func (p *Process) bindWithRetry() (*core.TCPTransport, int, error) {
	const maxAttempts = 16
	port := p.config.Port
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		transport, err := core.NewTCPTransport(p.config.Host, port, nil, p.engineHandleInbound, p.log)
		if err == nil {
			return transport, port, nil
		}
		lastErr = err
		port++
	}
	return nil, 0, lastErr
}

// engineHandleInbound is the transport's InboundHandler. It is a thin
// trampoline so Start can construct the transport before the engine
// exists (the engine needs the transport to be constructed first).
func (p *Process) engineHandleInbound(m types.Message) {
	p.mu.Lock()
	engine := p.engine
	p.mu.Unlock()
	if engine == nil {
		return
	}
	engine.HandleInbound(m)
}

// Stop flips the running flag, stops the engine's timeout loop, and
// closes the transport (unblocking its accept loop). Outstanding
// PendingEntries are discarded without OnFailed firing.
func (p *Process) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	engine := p.engine
	transport := p.transport
	p.mu.Unlock()

	p.logEvent(EventSystem, fmt.Sprintf("process %d stopping", p.id))
	if engine != nil {
		engine.Stop()
	}
	if transport != nil {
		transport.Close()
	}
}

// Multicast sends content reliably to recipients (nil meaning every known
// peer but self) and returns the assigned message id.
func (p *Process) Multicast(content string, recipients []int) types.ID {
	id := p.engine.Multicast(content, recipients)
	p.logEvent(EventSend, fmt.Sprintf("multicast %s: %q to %v", id, content, recipients))
	return id
}

// RegisterPeer records an explicit address for a peer id.
func (p *Process) RegisterPeer(id int, host string, port int) {
	p.directory.Register(id, host, port)
	p.logEvent(EventSystem, fmt.Sprintf("registered peer %d at %s:%d", id, host, port))
}

// Discover probes every id in idRange and adds newly-reachable peers to
// the known-peer set.
func (p *Process) Discover(idRange []int) []int {
	reachable := p.discovery.Discover(idRange)
	for _, id := range reachable {
		p.directory.Learn(id)
	}
	p.logEvent(EventDiscovery, fmt.Sprintf("reachable peers: %v", reachable))
	return reachable
}

// Stats reports the process's current statistics surface.
func (p *Process) Stats() Stats {
	s := p.engine.Stats()
	return Stats{
		Lamport:         s.Lamport,
		PendingCount:    s.PendingCount,
		QueueLen:        s.QueueLen,
		DeliveredCount:  s.DeliveredCount,
		KnownPeersCount: p.directory.Count(),
	}
}

// EventLog returns the last n events (0 or negative means all), oldest
// first.
func (p *Process) EventLog(n int) []Event {
	return p.events.Last(n)
}

func (p *Process) logEvent(kind EventKind, description string) {
	p.events.Push(Event{
		WallTime:    time.Now(),
		Lamport:     p.clock.Read(),
		Kind:        kind,
		Description: description,
	})
}

func (p *Process) onDelivered(m types.Message) {
	p.logEvent(EventDeliver, fmt.Sprintf("from P%d (T:%d): %q", m.SenderID, m.Timestamp, m.Content))
}

func (p *Process) onFailed(m types.Message) {
	p.logEvent(EventFailed, fmt.Sprintf("delivery of %q to %v abandoned", m.Content, m.Recipients))
}

// eventColor picks the *color.Color for an EventKind, the way an
// interactive shell would highlight its own log.
func eventColor(kind EventKind) *color.Color {
	switch kind {
	case EventDeliver:
		return color.New(color.FgGreen)
	case EventFailed:
		return color.New(color.FgRed)
	case EventDiscovery:
		return color.New(color.FgCyan)
	case EventSend:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

// DumpLog writes the last n events to w, colorized by kind.
func (p *Process) DumpLog(w io.Writer, n int) {
	for _, ev := range p.EventLog(n) {
		c := eventColor(ev.Kind)
		c.Fprintf(w, "[%s] L:%-4d %-9s %s\n", ev.WallTime.Format("15:04:05"), ev.Lamport, ev.Kind, ev.Description)
	}
}
