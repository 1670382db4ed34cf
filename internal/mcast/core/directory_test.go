package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectory_SelfEntryIsImmutable(t *testing.T) {
	self := Address{Host: "localhost", Port: 8001}
	d := NewDirectory(1, self)

	require.Equal(t, self, d.Resolve(1))

	d.Register(1, "attacker", 1)
	require.Equal(t, self, d.Resolve(1), "registering the local id must be a no-op")

	require.False(t, d.Learn(1), "learning the local id must be a no-op")
}

func TestDirectory_ResolveFallsBackToDefaultConvention(t *testing.T) {
	d := NewDirectory(1, Address{Host: "localhost", Port: 8001})
	require.Equal(t, Address{Host: "localhost", Port: 8003}, d.Resolve(3))
}

func TestDirectory_RegisterOverridesDefault(t *testing.T) {
	d := NewDirectory(1, Address{Host: "localhost", Port: 8001})
	d.Register(3, "10.0.0.5", 9999)
	require.Equal(t, Address{Host: "10.0.0.5", Port: 9999}, d.Resolve(3))
}

func TestDirectory_LearnOnlyOnce(t *testing.T) {
	d := NewDirectory(1, Address{Host: "localhost", Port: 8001})

	require.True(t, d.Learn(4))
	require.False(t, d.Learn(4))
	require.Equal(t, Address{Host: "localhost", Port: 8004}, d.Resolve(4))
}

func TestDirectory_KnownAndCount(t *testing.T) {
	d := NewDirectory(1, Address{Host: "localhost", Port: 8001})
	d.Learn(2)
	d.Register(3, "localhost", 8003)

	require.Equal(t, 3, d.Count())
	require.ElementsMatch(t, []int{1, 2, 3}, d.Known())
}
