package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptString(t *testing.T) {
	tr := Transcript{
		{Speaker: SpeakerAssistant, Text: "How was everything?"},
		{Speaker: SpeakerUser, Text: "Really good."},
	}

	assert.Equal(t, "Assistant: How was everything?\nUser: Really good.", tr.String())
	assert.Equal(t, "", Transcript{}.String())
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Transcript
	}{
		{
			name:     "empty",
			input:    "",
			expected: Transcript{},
		},
		{
			name:  "speaker prefixes",
			input: "Assistant: Hi there\nUser: Hello\nCustomer: The salad was fresh",
			expected: Transcript{
				{Speaker: SpeakerAssistant, Text: "Hi there"},
				{Speaker: SpeakerUser, Text: "Hello"},
				{Speaker: SpeakerUser, Text: "The salad was fresh"},
			},
		},
		{
			name:  "blank lines dropped",
			input: "Assistant: Hi\n\n\nUser: Hey\n",
			expected: Transcript{
				{Speaker: SpeakerAssistant, Text: "Hi"},
				{Speaker: SpeakerUser, Text: "Hey"},
			},
		},
		{
			name:  "unprefixed line continues previous utterance",
			input: "User: The pasta was perfect\nand the sauce too",
			expected: Transcript{
				{Speaker: SpeakerUser, Text: "The pasta was perfect and the sauce too"},
			},
		},
		{
			name:  "leading unprefixed line is not a user response",
			input: "hello?",
			expected: Transcript{
				{Speaker: SpeakerAssistant, Text: "hello?"},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, Parse(testCase.input))
		})
	}
}

func TestParseReadsString(t *testing.T) {
	tr := Transcript{
		{Speaker: SpeakerAssistant, Text: "Ready?"},
		{Speaker: SpeakerUser, Text: "Yes"},
		{Speaker: SpeakerUser, Text: "Loved the tiramisu"},
	}

	assert.Equal(t, tr, Parse(tr.String()))
	assert.Equal(t, 2, tr.UserTurns())
}
