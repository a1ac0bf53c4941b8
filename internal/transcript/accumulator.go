package transcript

import (
	"strings"

	"github.com/satriahrh/robozinho/domain/entities"
)

// Accumulator collects the final results of one transcription session.
// Partial results are dropped. OnEvent is called from the event reader only, and
// FinalizedText is read after that reader has returned, so no locking is needed.
type Accumulator struct {
	segments []string
	partials int
}

// OnEvent records one transcription event
func (a *Accumulator) OnEvent(event entities.TranscriptEvent) {
	if event.IsPartial {
		a.partials++
		return
	}
	a.segments = append(a.segments, event.Text)
}

// FinalizedText returns the final results joined by single spaces, in arrival order
func (a *Accumulator) FinalizedText() string {
	return strings.Join(a.segments, " ")
}

// Segments returns the number of final results seen
func (a *Accumulator) Segments() int {
	return len(a.segments)
}

// Partials returns the number of partial results dropped
func (a *Accumulator) Partials() int {
	return a.partials
}
