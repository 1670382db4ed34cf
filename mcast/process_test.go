package mcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newLoopbackProcess(t *testing.T, id int, peers []int) *Process {
	t.Helper()
	config := DefaultConfiguration(id)
	config.Port = 19000 + id
	config.AckTimeout = 200 * time.Millisecond
	config.MaxRetries = 3
	p := NewProcess(config)
	require.NoError(t, p.Start(peers))
	for _, peer := range peers {
		p.RegisterPeer(peer, "localhost", 19000+peer)
	}
	return p
}

func TestProcess_TwoPeersDeliverInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p1 := newLoopbackProcess(t, 1, []int{2})
	p2 := newLoopbackProcess(t, 2, []int{1})
	defer p1.Stop()
	defer p2.Stop()

	p1.Multicast("hello from 1", nil)

	require.True(t, waitUntil(t, 2*time.Second, func() bool {
		return p2.Stats().DeliveredCount == 1
	}))

	events := p2.EventLog(0)
	var sawDeliver bool
	for _, ev := range events {
		if ev.Kind == EventDeliver {
			sawDeliver = true
			require.Contains(t, ev.Description, "hello from 1")
		}
	}
	require.True(t, sawDeliver)
}

func TestProcess_RegisterPeerOverridesDiscoveryAddress(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p1 := newLoopbackProcess(t, 3, nil)
	p2 := newLoopbackProcess(t, 4, nil)
	defer p1.Stop()
	defer p2.Stop()

	p1.RegisterPeer(4, "127.0.0.1", 19004)
	p1.Multicast("direct", []int{4})

	require.True(t, waitUntil(t, 2*time.Second, func() bool {
		return p2.Stats().DeliveredCount == 1
	}))
}

func TestProcess_DiscoverReportsReachablePeersPlusSelf(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p1 := newLoopbackProcess(t, 5, nil)
	p2 := newLoopbackProcess(t, 6, nil)
	defer p1.Stop()
	defer p2.Stop()

	p1.RegisterPeer(6, "localhost", 19006)
	p1.RegisterPeer(7, "localhost", 19007) // nothing listens here

	reachable := p1.Discover([]int{5, 6, 7})
	require.Contains(t, reachable, 5)
	require.Contains(t, reachable, 6)
	require.NotContains(t, reachable, 7)
}

func TestProcess_StopIsIdempotentAndBounded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := newLoopbackProcess(t, 8, nil)
	start := time.Now()
	p.Stop()
	p.Stop()
	require.Less(t, time.Since(start), 5*time.Second)
}
