// Package fuzzy runs small multi-peer scenarios end-to-end over real
// loopback sockets, the way the corpus's own fuzzy suite exercises a
// whole cluster instead of a single unit.
package fuzzy

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lucaslopes5988/lamport-mcast/mcast"
	"go.uber.org/goleak"
)

const basePort = 29000

var alphabet = []string{"a", "b", "c", "d", "e", "f", "g", "h"}

func startCluster(t *testing.T, size int) []*mcast.Process {
	t.Helper()
	ids := make([]int, size)
	for i := range ids {
		ids[i] = i
	}

	processes := make([]*mcast.Process, size)
	for i, id := range ids {
		config := mcast.DefaultConfiguration(id)
		config.Port = basePort + id
		config.AckTimeout = 200 * time.Millisecond
		processes[i] = mcast.NewProcess(config)
	}
	for _, p := range processes {
		if err := p.Start(ids); err != nil {
			t.Fatalf("peer %d failed to start: %v", p.ID(), err)
		}
		for _, id := range ids {
			if id != p.ID() {
				p.RegisterPeer(id, "localhost", basePort+id)
			}
		}
	}
	return processes
}

func stopCluster(processes []*mcast.Process) {
	var wg sync.WaitGroup
	for _, p := range processes {
		wg.Add(1)
		go func(p *mcast.Process) {
			defer wg.Done()
			p.Stop()
		}(p)
	}
	wg.Wait()
}

func waitUntilAll(t *testing.T, processes []*mcast.Process, want int, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ready := true
		for _, p := range processes {
			if p.Stats().DeliveredCount < want {
				ready = false
				break
			}
		}
		if ready {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// Test_SequentialCommands sends the alphabet one letter at a time from a
// single peer and checks every other peer eventually delivers all of
// them.
func Test_SequentialCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	processes := startCluster(t, 3)
	defer stopCluster(processes)

	sender := processes[0]
	for _, letter := range alphabet {
		sender.Multicast(fmt.Sprintf("letter-%s", letter), nil)
	}

	if !waitUntilAll(t, processes[1:], len(alphabet), 10*time.Second) {
		t.Fatal("not every peer delivered the full sequence in time")
	}
}

// Test_ConcurrentCommands has every peer multicast at the same time and
// checks the cluster converges on delivering every message.
func Test_ConcurrentCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	processes := startCluster(t, 3)
	defer stopCluster(processes)

	var wg sync.WaitGroup
	for _, p := range processes {
		wg.Add(1)
		go func(p *mcast.Process) {
			defer wg.Done()
			for _, letter := range alphabet {
				p.Multicast(fmt.Sprintf("from-%d-%s", p.ID(), letter), nil)
			}
		}(p)
	}
	wg.Wait()

	want := len(alphabet) * (len(processes) - 1)
	if !waitUntilAll(t, processes, want, 15*time.Second) {
		t.Fatal("cluster did not converge on delivering every message")
	}
}
