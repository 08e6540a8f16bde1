package session

import "encoding/json"

// DefaultTranscriptCap is how many recent lines the narrator context keeps.
const DefaultTranscriptCap = 50

// Transcript is a fixed-capacity ring of recent chat lines. Old lines
// fall off the front; the ring serializes as a flat JSON array so the
// session document stays readable.
type Transcript struct {
	cap   int
	lines []string
}

// NewTranscript creates an empty transcript holding at most capacity lines.
//
// Precondition: capacity > 0.
func NewTranscript(capacity int) *Transcript {
	return &Transcript{cap: capacity}
}

// Append records one line, evicting the oldest when full.
func (t *Transcript) Append(speaker, text string) {
	line := speaker + ": " + text
	if speaker == "" {
		line = text
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.cap {
		t.lines = t.lines[len(t.lines)-t.cap:]
	}
}

// Lines returns the retained lines, oldest first. The slice is shared;
// callers must not mutate it.
func (t *Transcript) Lines() []string { return t.lines }

// MarshalJSON encodes the transcript as a flat line array.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.lines)
}

// UnmarshalJSON restores a transcript from a flat line array at the
// default capacity, trimming to fit.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	t.cap = DefaultTranscriptCap
	if len(lines) > t.cap {
		lines = lines[len(lines)-t.cap:]
	}
	t.lines = lines
	return nil
}
