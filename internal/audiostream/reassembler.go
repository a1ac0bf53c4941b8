package audiostream

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/satriahrh/robozinho/domain"
)

// ErrAlreadyComplete is returned when frames arrive after the terminator
var ErrAlreadyComplete = errors.New("audio stream already complete")

// Reassembler rebuilds one audio buffer from frames received in arrival order.
// It does not resequence: a numbered frame out of order is a corruption error.
type Reassembler struct {
	buf      bytes.Buffer
	nextSeq  int
	frames   int
	complete bool
	aborted  bool
}

// NewReassembler creates an empty reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Add consumes one wire frame and reports whether the terminator has been seen
func (r *Reassembler) Add(msg domain.AudioChunkFrame) (bool, error) {
	if r.aborted {
		return false, domain.ErrStreamAborted
	}
	if r.complete {
		return true, ErrAlreadyComplete
	}

	frame, hasSeq, err := DecodeFrame(msg)
	if err != nil {
		r.discard()
		return false, err
	}
	if hasSeq && frame.Seq != r.nextSeq {
		r.discard()
		return false, fmt.Errorf("%w: expected %d, got %d", domain.ErrSequenceGap, r.nextSeq, frame.Seq)
	}
	r.nextSeq++

	if frame.EndOfStream {
		r.complete = true
		return true, nil
	}
	r.buf.Write(frame.Payload)
	r.frames++
	return false, nil
}

// Abort discards the partial buffer after an error frame. The returned error wraps
// domain.ErrStreamAborted.
func (r *Reassembler) Abort(reason string) error {
	r.discard()
	return fmt.Errorf("%w: %s", domain.ErrStreamAborted, reason)
}

// Complete reports whether the terminator has been received
func (r *Reassembler) Complete() bool {
	return r.complete
}

// Frames returns the number of data frames consumed
func (r *Reassembler) Frames() int {
	return r.frames
}

// Audio returns the reassembled buffer, only once the terminator has been received
func (r *Reassembler) Audio() ([]byte, error) {
	if !r.complete {
		return nil, errors.New("audio stream not complete")
	}
	return r.buf.Bytes(), nil
}

func (r *Reassembler) discard() {
	r.aborted = true
	r.buf.Reset()
}
