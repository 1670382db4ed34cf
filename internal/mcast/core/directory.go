package core

import (
	"fmt"
	"sync"
)

// Address is a peer's network location.
type Address struct {
	Host string
	Port int
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// defaultHost/defaultPortBase implement the default address-resolution
// convention for an unregistered peer: host="localhost",
// port=8000+peer_id.
const (
	defaultHost     = "localhost"
	defaultPortBase = 8000
)

// Directory maps peer ids to network addresses. Reads dominate writes, so
// access is guarded by a plain mutex rather than split read/write paths.
type Directory struct {
	mu      sync.Mutex
	self    int
	entries map[int]Address
}

// NewDirectory creates a directory for the local peer selfID. The local
// peer's own entry is seeded immediately and is immutable thereafter.
func NewDirectory(selfID int, self Address) *Directory {
	return &Directory{
		self: selfID,
		entries: map[int]Address{
			selfID: self,
		},
	}
}

// Register records an explicit address for a peer, e.g. at startup
// configuration. Registering the local peer's own id is a no-op,
// preserving the immutability invariant.
func (d *Directory) Register(id int, host string, port int) {
	if id == d.self {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[id] = Address{Host: host, Port: port}
}

// Learn records a peer's address only if it is not already known, used
// when a Multicast arrives from a previously-unseen sender. Returns true
// if this peer id was newly learned.
func (d *Directory) Learn(id int) bool {
	if id == d.self {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; ok {
		return false
	}
	d.entries[id] = Address{Host: defaultHost, Port: defaultPortBase + id}
	return true
}

// Resolve returns the address for id, falling back to the default
// localhost:8000+id convention when unregistered.
func (d *Directory) Resolve(id int) Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr, ok := d.entries[id]; ok {
		return addr
	}
	return Address{Host: defaultHost, Port: defaultPortBase + id}
}

// Known returns a snapshot of every peer id the directory currently knows
// about, including the local peer.
func (d *Directory) Known() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]int, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of known peers, including the local peer.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
