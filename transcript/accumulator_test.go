package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorKeepsArrivalOrder(t *testing.T) {
	acc := NewAccumulator()

	require.NoError(t, acc.Append(SpeakerAssistant, "Hi! Ready to get started?"))
	require.NoError(t, acc.Append(SpeakerUser, "Sure."))
	require.NoError(t, acc.Append(SpeakerUser, "The pizza was great."))
	require.NoError(t, acc.Append(SpeakerAssistant, "Glad to hear it."))

	got := acc.Snapshot()
	want := Transcript{
		{Speaker: SpeakerAssistant, Text: "Hi! Ready to get started?"},
		{Speaker: SpeakerUser, Text: "Sure."},
		{Speaker: SpeakerUser, Text: "The pizza was great."},
		{Speaker: SpeakerAssistant, Text: "Glad to hear it."},
	}
	assert.Equal(t, want, got)
}

func TestAccumulatorRejectsEmptyText(t *testing.T) {
	acc := NewAccumulator()

	assert.ErrorIs(t, acc.Append(SpeakerUser, "   "), ErrEmptyUtterance)
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulatorSnapshotIsIsolated(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.Append(SpeakerUser, "first"))

	snapshot := acc.Snapshot()
	require.NoError(t, acc.Append(SpeakerUser, "second"))
	snapshot[0].Text = "changed"

	assert.Len(t, snapshot, 1)
	assert.Equal(t, "first", acc.Snapshot()[0].Text)
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.Append(SpeakerUser, "hello"))

	acc.Reset()

	assert.Equal(t, 0, acc.Len())
	assert.Empty(t, acc.Snapshot())
}

func TestSpeakerForRole(t *testing.T) {
	assert.Equal(t, SpeakerUser, SpeakerForRole("user"))
	assert.Equal(t, SpeakerUser, SpeakerForRole("User"))
	assert.Equal(t, SpeakerAssistant, SpeakerForRole("assistant"))
	assert.Equal(t, SpeakerAssistant, SpeakerForRole("bot"))
}
