package entities

// TranscriptEvent is one result delivered by a streaming transcription service.
// Partial events may later be superseded; final events are never revised.
type TranscriptEvent struct {
	IsPartial bool   `json:"is_partial"`
	Text      string `json:"text"`
}

// AudioFrame is one bounded slice of synthesized audio, or the end-of-stream marker
type AudioFrame struct {
	Seq         int
	Payload     []byte
	EndOfStream bool
}
