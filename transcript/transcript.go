package transcript

import "strings"

// Transcript is the ordered sequence of utterances for one session
type Transcript []Utterance

// customerPrefix is accepted as a user line when reading transcripts that
// were written by hand or by older clients.
const customerPrefix = "Customer:"

// UserTurns counts utterances spoken by the user
func (t Transcript) UserTurns() int {
	n := 0
	for _, u := range t {
		if u.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// String renders the transcript as "Speaker: text" lines joined by newlines
func (t Transcript) String() string {
	lines := make([]string, 0, len(t))
	for _, u := range t {
		lines = append(lines, string(u.Speaker)+": "+u.Text)
	}
	return strings.Join(lines, "\n")
}

// Parse reads the line form produced by String.
//
// Blank lines are dropped. A line without a known speaker prefix continues
// the previous utterance; when there is none it is attributed to the
// assistant so it never counts as a user response.
func Parse(text string) Transcript {
	t := make(Transcript, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		speaker, body, ok := splitSpeaker(line)
		if !ok {
			if len(t) > 0 {
				last := &t[len(t)-1]
				last.Text = last.Text + " " + line
				continue
			}
			speaker, body = SpeakerAssistant, line
		}

		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		t = append(t, Utterance{Speaker: speaker, Text: body})
	}
	return t
}

func splitSpeaker(line string) (Speaker, string, bool) {
	switch {
	case strings.HasPrefix(line, string(SpeakerUser)+":"):
		return SpeakerUser, line[len(SpeakerUser)+1:], true
	case strings.HasPrefix(line, customerPrefix):
		return SpeakerUser, line[len(customerPrefix):], true
	case strings.HasPrefix(line, string(SpeakerAssistant)+":"):
		return SpeakerAssistant, line[len(SpeakerAssistant)+1:], true
	}
	return "", "", false
}
