package gedcom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed tokenizes each raw line and hands it to m.
func feed(t *testing.T, m *Machine, raw ...string) {
	t.Helper()
	for i, r := range raw {
		if l, ok := Tokenize(i+1, r); ok {
			m.Next(l)
		} else {
			m.Unrecognized(i+1, r)
		}
	}
}

func TestMachine_Transitions(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateInitial, m.State())
	assert.True(t, m.CanAdvance())
	assert.False(t, m.Successful())

	feed(t, m, "0 HEAD")
	assert.Equal(t, StateRecordTag, m.State())
	assert.False(t, m.Successful(), "no block closed yet")

	feed(t, m, "1 CHAR UTF-8", "0 @I1@ INDI")
	assert.Equal(t, StateRecordTag, m.State())
	assert.Equal(t, 1, m.Closed())
	assert.True(t, m.Successful())

	require.NoError(t, m.Flush())
	assert.Equal(t, StateReference, m.State())
	assert.Equal(t, 2, m.Closed())
	assert.False(t, m.Successful())
	assert.True(t, m.CanAdvance())

	feed(t, m, "0 @I2@ INDI")
	assert.Equal(t, StateRecordTag, m.State())

	res, err := m.Fold()
	require.NoError(t, err)
	assert.Equal(t, 2, res.Registry.Len())
}

func TestMachine_ReferenceRejectsNestedLine(t *testing.T) {
	m := NewMachine()
	feed(t, m, "0 HEAD")
	require.NoError(t, m.Flush())

	feed(t, m, "1 NAME orphan")
	assert.Equal(t, StateInvalid, m.State())
	assert.True(t, IsStructural(m.Err()))
}

func TestMachine_InvalidIsTerminal(t *testing.T) {
	m := NewMachine()
	feed(t, m, "0 HEAD", "2 FOO")
	require.Equal(t, StateInvalid, m.State())
	assert.False(t, m.CanAdvance())
	assert.False(t, m.Successful())
	first := m.Err()

	feed(t, m, "0 @I1@ INDI", "1 NAME ignored")
	assert.Equal(t, StateInvalid, m.State())
	assert.Same(t, first, m.Err(), "later input does not replace the failure")

	res, err := m.Fold()
	assert.Nil(t, res)
	assert.Equal(t, first, err)
}

func TestMachine_FoldInitial(t *testing.T) {
	m := NewMachine()
	res, err := m.Fold()
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotRecognized)
	assert.Equal(t, StateInvalid, m.State())
}

func TestMachine_FlushInitial(t *testing.T) {
	err := NewMachine().Flush()
	assert.ErrorIs(t, err, ErrNotRecognized)
}

func TestMachine_SecondHeaderIsExtraBlock(t *testing.T) {
	m := NewMachine()
	feed(t, m, "0 HEAD", "1 SOUR a", "0 HEAD", "1 SOUR b")
	res, err := m.Fold()
	require.NoError(t, err)
	require.NotNil(t, res.Header)
	assert.Equal(t, "a", res.Header.Children[0].Content)
	require.Len(t, res.Extra, 1)
	assert.Equal(t, "b", res.Extra[0].Children[0].Content)
}

func TestMachine_NestedReferenceLine(t *testing.T) {
	m := NewMachine()
	feed(t, m, "0 HEAD", "0 @N1@ NOTE", "1 @X7@ inline")
	res, err := m.Fold()
	require.NoError(t, err)

	note := res.Registry.Get(Xref{Type: "N", ID: 1})
	require.NotNil(t, note)
	require.Len(t, note.Tags, 1)
	assert.Equal(t, Xref{Type: "X", ID: 7}, note.Tags[0].Xref)
	assert.Equal(t, "@X7@", note.Tags[0].Name)
	assert.Equal(t, "inline", note.Tags[0].Content)
	assert.Equal(t, 1, res.Registry.Len(), "only level-0 references become records")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initial", StateInitial.String())
	assert.Equal(t, "reference", StateReference.String())
	assert.Equal(t, "record-tag", StateRecordTag.String())
	assert.Equal(t, "invalid", StateInvalid.String())
	assert.Equal(t, "state(9)", State(9).String())
}
