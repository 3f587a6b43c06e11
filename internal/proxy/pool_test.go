package proxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPickEmptyPool(t *testing.T) {
	t.Parallel()

	p := New(nil)
	addr, ok := p.Pick(func(int) int { return 0 })
	require.False(t, ok)
	require.Empty(t, addr)
}

func TestPickUsesChooser(t *testing.T) {
	t.Parallel()

	p := New([]string{"a:8080", "b:8080", "c:8080"})
	addr, ok := p.Pick(func(n int) int {
		require.Equal(t, 3, n)
		return 1
	})
	require.True(t, ok)
	require.Equal(t, "b:8080", addr)
}

func TestDropRemovesWithoutRefill(t *testing.T) {
	t.Parallel()

	p := New([]string{"a:8080", "b:8080"})
	refilled := p.Drop("a:8080")
	require.False(t, refilled)
	require.Equal(t, []string{"b:8080"}, p.Snapshot())
	require.Equal(t, 2, p.CompleteLen())
}

func TestDropLastProxyRefills(t *testing.T) {
	t.Parallel()

	p := New([]string{"a:8080"})
	refilled := p.Drop("a:8080")
	require.True(t, refilled)
	require.Equal(t, []string{"a:8080"}, p.Snapshot())
}

func TestDropUnknownAddrIsNoop(t *testing.T) {
	t.Parallel()

	p := New([]string{"a:8080", "b:8080"})
	refilled := p.Drop("z:9090")
	require.False(t, refilled)
	require.Equal(t, 2, p.Len())
}

func TestLiveNeverExceedsComplete(t *testing.T) {
	t.Parallel()

	seed := []string{"a:8080", "b:8080", "c:8080"}
	p := New(seed)
	inComplete := func(addr string) bool {
		for _, a := range seed {
			if a == addr {
				return true
			}
		}
		return false
	}

	// Churn through removals and refills; the live set must stay a subset
	// of the complete set the whole time.
	for i := 0; i < 20; i++ {
		addr, ok := p.Pick(func(n int) int { return i % n })
		require.True(t, ok)
		p.Drop(addr)
		require.LessOrEqual(t, p.Len(), p.CompleteLen())
		for _, a := range p.Snapshot() {
			require.True(t, inComplete(a))
		}
	}
}
