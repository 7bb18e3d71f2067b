package chat

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSetIsImmutable(t *testing.T) {
	a := NewUserSet("alice")
	b := a.With("bob")
	c := b.Without("alice")

	assert.Equal(t, []string{"alice"}, a.Members())
	assert.Equal(t, []string{"alice", "bob"}, b.Members())
	assert.Equal(t, []string{"bob"}, c.Members())
	assert.Equal(t, 0, UserSet{}.Len())
	assert.False(t, NewUserSet("").Has(""))
}

func TestPresenceMatchesLastDelta(t *testing.T) {
	names := []string{"alice", "bob", "carol", "dave"}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		var tr Tracker
		want := map[string]bool{}
		steps := rng.Intn(40)
		for i := 0; i < steps; i++ {
			n := names[rng.Intn(len(names))]
			if rng.Intn(2) == 0 {
				tr.Joined(n)
				want[n] = true
			} else {
				tr.Left(n)
				delete(want, n)
			}
		}

		var members []string
		for n := range want {
			members = append(members, n)
		}
		sort.Strings(members)
		require.Equal(t, len(members), tr.Presence().Len())
		if len(members) > 0 {
			require.Equal(t, members, tr.Presence().Members())
		}
	}
}

func TestTypingConvergesToLastValue(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 100; round++ {
		var tr Tracker
		last := map[string]bool{}
		for i := 0; i < 30; i++ {
			n := []string{"alice", "bob"}[rng.Intn(2)]
			v := rng.Intn(2) == 1
			tr.Typing(n, v)
			last[n] = v
		}
		for n, v := range last {
			assert.Equal(t, v, tr.TypingUsers().Has(n))
		}
	}
}

func TestResetPresenceKeepsTyping(t *testing.T) {
	var tr Tracker
	tr.Joined("alice")
	tr.Typing("alice", true)
	snap := tr.Presence()

	tr.ResetPresence()
	assert.Zero(t, tr.Presence().Len())
	assert.True(t, tr.TypingUsers().Has("alice"))
	assert.True(t, snap.Has("alice"), "earlier snapshots are not affected")
}
