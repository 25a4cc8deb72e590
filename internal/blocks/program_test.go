package blocks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvecode/gridtutor/internal/types"
)

func TestProgram_AppendAssignsIncreasingIDs(t *testing.T) {
	// Each Append returns a fresh, strictly increasing handle
	p := New()
	a := p.Append(types.Forward())
	b := p.Append(types.TurnRightCmd())
	assert.Less(t, a, b)
	assert.Equal(t, 2, p.Len())
}

func TestProgram_RemoveAtKeepsOtherIDs(t *testing.T) {
	// Removing by index shifts later blocks but leaves their handles intact
	p := New()
	p.Append(types.Forward())
	mid := p.Append(types.TurnLeftCmd())
	last := p.Append(types.Repeat(3))

	removed, err := p.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, mid, removed.ID)
	assert.Equal(t, 1, p.IndexOf(last))
	assert.Equal(t, []types.Command{types.Forward(), types.Repeat(3)}, p.Commands())
}

func TestProgram_RemoveAtOutOfRange(t *testing.T) {
	// Out-of-range indexes fail with ErrIndexOutOfRange and change nothing
	p := New()
	p.Append(types.Forward())
	for _, idx := range []int{-1, 1, 5} {
		_, err := p.RemoveAt(idx)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", idx)
	}
	assert.Equal(t, 1, p.Len())
}

func TestProgram_RemoveByID(t *testing.T) {
	// Remove finds the block by handle; unknown handles fail with ErrUnknownBlock
	p := New()
	id := p.Append(types.Forward())
	p.Append(types.TurnRightCmd())

	_, err := p.Remove(id)
	require.NoError(t, err)
	assert.Equal(t, -1, p.IndexOf(id))

	_, err = p.Remove(id)
	assert.True(t, errors.Is(err, ErrUnknownBlock))
}

func TestProgram_ClearDoesNotReuseIDs(t *testing.T) {
	// After Clear the program is empty and new handles are still fresh
	p := New()
	old := p.Append(types.Forward())
	p.Clear()
	assert.Zero(t, p.Len())
	assert.Greater(t, p.Append(types.Forward()), old)
}

func TestProgram_BatchRoundTrip(t *testing.T) {
	// MarshalBatch writes toolbox labels as a JSON array
	p := New()
	p.Append(types.Forward())
	p.Append(types.TurnRightCmd())
	p.Append(types.Repeat(3))

	payload, err := p.MarshalBatch()
	require.NoError(t, err)
	assert.Equal(t, `["Move Forward","Turn Right","Repeat 3 Times"]`, payload)

	labels, err := UnmarshalBatch(payload)
	require.NoError(t, err)
	assert.Equal(t, p.Labels(), labels)
}

func TestProgram_EmptyBatchIsArray(t *testing.T) {
	// An empty program serialises as [] rather than null
	payload, err := New().MarshalBatch()
	require.NoError(t, err)
	assert.Equal(t, "[]", payload)
}

func TestParse_Aliases(t *testing.T) {
	// Short forms, words and toolbox labels all resolve
	cases := map[string]types.Command{
		"f":              types.Forward(),
		"Move Forward":   types.Forward(),
		"  RIGHT ":       types.TurnRightCmd(),
		"turn   left":    types.TurnLeftCmd(),
		"loop":           types.Repeat(4),
		"Repeat 4 Times": types.Repeat(4),
		"ｆｏｒｗａｒｄ":        types.Forward(),
	}
	for in, want := range cases {
		got, err := Parse(in, 4)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParse_Unknown(t *testing.T) {
	// Unknown tokens and mismatched repeat counts are rejected
	for _, in := range []string{"jump", "", "repeat 2 times"} {
		_, err := Parse(in, 3)
		assert.True(t, errors.Is(err, ErrUnknownCommand), in)
	}
}
