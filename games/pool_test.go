package games_test

import (
	"testing"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool__DuplicateLabels(t *testing.T) {
	_, err := games.NewPool("teams", []string{"Arsenal", "Chelsea", "ARSENAL"})
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)

	_, err = games.NewPool("teams", []string{"Arsenal", " "})
	assert.ErrorIs(t, err, rompatch.ErrInvalidArgument)
}

func TestPool__LookupIsInjective(t *testing.T) {
	pool := games.NumberedPool("club", "ML", 32)
	require.Equal(t, 32, pool.Size())

	seen := make(map[string]bool)
	for i := 0; i < pool.Size(); i++ {
		label := pool.Label(i)
		assert.False(t, seen[label], "label %q used twice", label)
		seen[label] = true

		index, ok := pool.Lookup(label)
		require.True(t, ok, "can't find %q", label)
		assert.Equal(t, i, index)
	}
	assert.Equal(t, "ML01", pool.Label(0))
	assert.Equal(t, "ML32", pool.Label(31))
}

func TestPool__Resolve(t *testing.T) {
	pool := games.NumberedPool("club", "ML", 32)
	tests := []struct {
		Ref      string
		Expected int
	}{
		{"ML01", 0},
		{"ml05", 4},
		{"7", 7},
		{" 31 ", 31},
	}

	for _, test := range tests {
		t.Run(test.Ref, func(t *testing.T) {
			slot, err := pool.Resolve(test.Ref)
			require.NoError(t, err)
			assert.Equal(t, rompatch.SlotID{Pool: "club", Index: test.Expected}, slot)
		})
	}

	_, err := pool.Resolve("32")
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
	_, err = pool.Resolve("ML33")
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
}

func TestParseSlot(t *testing.T) {
	target := games.WE2002()

	slot, err := games.ParseSlot(target, "ML05")
	require.NoError(t, err)
	assert.Equal(t, rompatch.SlotID{Pool: "club", Index: 4}, slot)

	slot, err = games.ParseSlot(target, "national:NT63")
	require.NoError(t, err)
	assert.Equal(t, rompatch.SlotID{Pool: "national", Index: 62}, slot)

	slot, err = games.ParseSlot(target, "National:3")
	require.NoError(t, err)
	assert.Equal(t, rompatch.SlotID{Pool: "national", Index: 3}, slot)

	_, err = games.ParseSlot(target, "allstar:1")
	assert.ErrorIs(t, err, rompatch.ErrNotFound)
}
