// Package models defines the data structures exchanged between components.
package models

// TranscriptEvent is one result from the transcription session.
type TranscriptEvent struct {
	Transcript  string `json:"transcript"`
	IsFinal     bool   `json:"isFinal"`
	SpeechFinal bool   `json:"speechFinal"`
	// ReceivedAt is the local receive time in Unix milliseconds.
	ReceivedAt int64 `json:"receivedAt"`
}

// Kind returns "final" or "interim".
func (e TranscriptEvent) Kind() string {
	if e.IsFinal {
		return "final"
	}
	return "interim"
}

// SnapshotType is the message type pushed to subscribers.
const SnapshotType = "update"

// SentenceView is the read-only projection of one sentence.
// Translation is nil until a translation exists.
type SentenceView struct {
	Sentence    string  `json:"sentence"`
	Translation *string `json:"tr_sentence"`
}

// Snapshot is the point-in-time view of the finalized and interim sentence lists.
type Snapshot struct {
	Type      string         `json:"type"`
	Sentences []SentenceView `json:"sentences"`
	Interim   []SentenceView `json:"not_final_sentences"`
}

// EmptySnapshot returns a snapshot with no sentences.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Type:      SnapshotType,
		Sentences: []SentenceView{},
		Interim:   []SentenceView{},
	}
}
