package call

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/OpenFeedback/store"
	"github.com/room4-2/OpenFeedback/transcript"
	"github.com/room4-2/OpenFeedback/voice"
)

func newTestMachine() *Machine {
	return NewMachine(Config{AssistantID: "restaurant-feedback", Errors: voice.DefaultErrorFilter()})
}

func event(e voice.Event) Input { return EngineEvent{Event: e} }

func final(role, text string) Input {
	return event(voice.NewTranscriptMessage(role, voice.TranscriptTypeFinal, text))
}

func effectsOf[T Effect](effects []Effect) []T {
	var out []T
	for _, e := range effects {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// connected drives a fresh machine to Listening
func connected(t *testing.T) *Machine {
	t.Helper()
	m := newTestMachine()
	m.Apply(StartIntent{Order: store.DemoOrder})
	m.Apply(event(voice.NewCallStarted()))
	require.Equal(t, StatusListening, m.Status())
	return m
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "user_speaking", StatusUserSpeaking.String())
	assert.Equal(t, "assistant_speaking", StatusAssistantSpeaking.String())
	assert.Equal(t, "unknown", Status(42).String())

	assert.False(t, StatusIdle.Open())
	assert.True(t, StatusConnecting.Open())
	assert.True(t, StatusThinking.Open())
	assert.False(t, StatusEnded.Open())
}

func TestStartOpensSession(t *testing.T) {
	m := newTestMachine()

	effects := m.Apply(StartIntent{Order: store.DemoOrder})
	require.Len(t, effects, 2)
	assert.Equal(t, StatusChanged{From: StatusIdle, To: StatusConnecting}, effects[0])

	open, ok := effects[1].(OpenSession)
	require.True(t, ok)
	assert.Equal(t, "restaurant-feedback", open.AssistantID)
	assert.Equal(t, "Mario's Pizzeria", open.Options.VariableValues[VarRestaurantName])
	assert.Equal(t, "Margherita Pizza, Caesar Salad, Tiramisu", open.Options.VariableValues[VarFoodItems])
	assert.Equal(t, "Peroni Beer, House Red Wine", open.Options.VariableValues[VarAlcoholItems])
	assert.Equal(t, "Italian, Pizza, Pasta, Beer, Wine", open.Options.VariableValues[VarCategories])
	assert.Contains(t, open.Options.FirstMessage, "Thanks for dining at Mario's Pizzeria today")
}

func TestStartOptionsDefaults(t *testing.T) {
	opts := StartOptions(store.OrderContext{RestaurantName: "Cafe", FoodItems: []string{"Soup"}})
	assert.Equal(t, "no alcoholic drinks", opts.VariableValues[VarAlcoholItems])
	assert.Equal(t, "general dining", opts.VariableValues[VarCategories])
	assert.Equal(t, "Soup", opts.VariableValues[VarFoodItems])
}

func TestStartIgnoredWhileOpen(t *testing.T) {
	m := connected(t)
	assert.Empty(t, m.Apply(StartIntent{Order: store.DemoOrder}))
	assert.Equal(t, StatusListening, m.Status())
}

func TestConversationTransitions(t *testing.T) {
	m := connected(t)

	steps := []struct {
		name  string
		input Input
		want  Status
	}{
		{"user starts", event(voice.NewSpeechStarted(voice.RoleUser)), StatusUserSpeaking},
		{"user stops", event(voice.NewSpeechEnded(voice.RoleUser)), StatusThinking},
		{"assistant starts", event(voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStarted)), StatusAssistantSpeaking},
		{"user barges in", event(voice.NewSpeechStarted(voice.RoleUser)), StatusUserSpeaking},
		{"user stops again", event(voice.NewSpeechEnded(voice.RoleUser)), StatusThinking},
		{"assistant replies", event(voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStarted)), StatusAssistantSpeaking},
		{"assistant done", event(voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStopped)), StatusListening},
		{"assistant speaks first", event(voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStarted)), StatusAssistantSpeaking},
	}

	for _, step := range steps {
		effects := m.Apply(step.input)
		assert.Equal(t, step.want, m.Status(), step.name)
		changes := effectsOf[StatusChanged](effects)
		require.Len(t, changes, 1, step.name)
		assert.Equal(t, step.want, changes[0].To, step.name)
	}
}

func TestIrrelevantEventsLeaveStatus(t *testing.T) {
	m := connected(t)

	assert.Empty(t, m.Apply(event(voice.NewSpeechEnded(voice.RoleUser))))
	assert.Empty(t, m.Apply(event(voice.NewSpeechUpdate(voice.RoleAssistant, voice.SpeechStatusStopped))))
	assert.Empty(t, m.Apply(event(voice.NewSpeechUpdate(voice.RoleUser, voice.SpeechStatusStarted))))
	assert.Empty(t, m.Apply(event(voice.NewCallStarted())))
	assert.Equal(t, StatusListening, m.Status())
}

func TestTranscriptCapture(t *testing.T) {
	m := connected(t)

	effects := m.Apply(final(voice.RoleAssistant, "How was your meal?"))
	recorded := effectsOf[UtteranceRecorded](effects)
	require.Len(t, recorded, 1)
	assert.Equal(t, transcript.SpeakerAssistant, recorded[0].Utterance.Speaker)

	assert.Empty(t, m.Apply(event(voice.NewTranscriptMessage(voice.RoleUser, voice.TranscriptTypePartial, "It was"))))
	assert.Empty(t, m.Apply(final(voice.RoleUser, "   ")))

	m.Apply(event(voice.NewSpeechStarted(voice.RoleUser)))
	m.Apply(final(voice.RoleUser, " It was great. "))

	assert.Equal(t, transcript.Transcript{
		{Speaker: transcript.SpeakerAssistant, Text: "How was your meal?"},
		{Speaker: transcript.SpeakerUser, Text: "It was great."},
	}, m.Transcript())
}

func TestTranscriptIgnoredWhenClosed(t *testing.T) {
	m := newTestMachine()
	assert.Empty(t, m.Apply(final(voice.RoleUser, "hello")))
	assert.Empty(t, m.Transcript())
}

func TestEndIntentDefersToEngine(t *testing.T) {
	m := connected(t)

	effects := m.Apply(EndIntent{})
	assert.Equal(t, []Effect{StopSession{}}, effects)
	assert.Equal(t, StatusListening, m.Status())

	assert.Empty(t, newTestMachine().Apply(EndIntent{}))
}

func TestCallEndedGeneratesReviewOnce(t *testing.T) {
	m := connected(t)
	m.Apply(final(voice.RoleAssistant, "Hi!"))
	m.Apply(final(voice.RoleUser, "Loved it."))

	effects := m.Apply(event(voice.NewCallEnded()))
	require.Len(t, effects, 2)
	assert.Equal(t, StatusChanged{From: StatusListening, To: StatusEnded}, effects[0])

	gen, ok := effects[1].(GenerateReview)
	require.True(t, ok)
	assert.Equal(t, 1, gen.Transcript.UserTurns())
	assert.Equal(t, "Mario's Pizzeria", gen.Order.RestaurantName)

	assert.Empty(t, m.Apply(event(voice.NewCallEnded())))
	assert.Empty(t, m.Apply(final(voice.RoleUser, "late")))
	assert.Equal(t, 2, len(m.Transcript()))
}

func TestStatusChangeIsFirstEffect(t *testing.T) {
	m := connected(t)
	inputs := []Input{
		event(voice.NewSpeechStarted(voice.RoleUser)),
		final(voice.RoleUser, "hello"),
		event(voice.NewSpeechEnded(voice.RoleUser)),
		event(voice.NewCallEnded()),
	}
	for _, in := range inputs {
		effects := m.Apply(in)
		for i, e := range effects {
			if _, ok := e.(StatusChanged); ok {
				assert.Equal(t, 0, i)
			}
		}
	}
}

func TestRestartAfterEnd(t *testing.T) {
	m := connected(t)
	m.Apply(final(voice.RoleUser, "first call"))
	m.Apply(MuteIntent{Muted: true})
	m.Apply(event(voice.NewCallEnded()))
	require.Equal(t, StatusEnded, m.Status())

	effects := m.Apply(StartIntent{Order: store.DemoOrder})
	require.NotEmpty(t, effects)
	assert.Equal(t, StatusConnecting, m.Status())
	assert.Empty(t, m.Transcript())
	assert.False(t, m.Muted())
}

func TestMute(t *testing.T) {
	m := connected(t)

	assert.Equal(t, []Effect{SetMuted{Muted: true}}, m.Apply(MuteIntent{Muted: true}))
	assert.True(t, m.Muted())
	assert.Equal(t, []Effect{SetMuted{Muted: false}}, m.Apply(MuteIntent{Muted: false}))
	assert.False(t, m.Muted())

	assert.Empty(t, newTestMachine().Apply(MuteIntent{Muted: true}))
}

func TestTransientErrorsSuppressed(t *testing.T) {
	m := connected(t)

	assert.Empty(t, m.Apply(event(voice.NewEngineError(voice.ErrorTypeEjected, "", nil))))
	assert.Empty(t, m.Apply(event(voice.NewEngineError("daily-error", "Meeting has ended", nil))))
	assert.Equal(t, StatusListening, m.Status())
}

func TestGenuineErrorResetsToIdle(t *testing.T) {
	m := connected(t)
	m.Apply(final(voice.RoleUser, "partial"))

	cause := voice.NewEngineError(voice.ErrorTypeConnection, "socket closed", errors.New("eof"))
	effects := m.Apply(event(cause))
	require.Len(t, effects, 3)
	assert.Equal(t, StatusChanged{From: StatusListening, To: StatusIdle}, effects[0])
	assert.Equal(t, StopSession{}, effects[1])

	alert, ok := effects[2].(Alert)
	require.True(t, ok)
	assert.Equal(t, EngineErrorNotice, alert.Message)
	assert.ErrorIs(t, alert.Cause, cause.Err)

	// The end notification that follows a failure is discarded.
	assert.Empty(t, m.Apply(event(voice.NewCallEnded())))
	assert.Empty(t, m.Apply(event(cause)))
	assert.Equal(t, StatusIdle, m.Status())
}

func TestStartFailureAlert(t *testing.T) {
	m := newTestMachine()
	m.Apply(StartIntent{Order: store.DemoOrder})

	effects := m.Apply(event(voice.NewEngineError(voice.ErrorTypeStartFailed, "", errors.New("dial failed"))))
	alerts := effectsOf[Alert](effects)
	require.Len(t, alerts, 1)
	assert.Equal(t, StartFailedNotice, alerts[0].Message)
	assert.Equal(t, StatusIdle, m.Status())

	effects = m.Apply(StartIntent{Order: store.DemoOrder})
	assert.NotEmpty(t, effectsOf[OpenSession](effects))
}
