package stt

import (
	"context"
	"errors"
	"io"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/domain/entities"
)

type fakeRecognizeStream struct {
	responses []*speechpb.StreamingRecognizeResponse
	recvErr   error
	sent      [][]byte
	closed    bool
	block     chan struct{}
}

func (f *fakeRecognizeStream) Send(req *speechpb.StreamingRecognizeRequest) error {
	f.sent = append(f.sent, req.GetAudioContent())
	return nil
}

func (f *fakeRecognizeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	if len(f.responses) > 0 {
		resp := f.responses[0]
		f.responses = f.responses[1:]
		return resp, nil
	}
	if f.block != nil {
		<-f.block
		return nil, errors.New("rpc error: code = Canceled")
	}
	if f.recvErr != nil {
		return nil, f.recvErr
	}
	return nil, io.EOF
}

func (f *fakeRecognizeStream) CloseSend() error {
	f.closed = true
	return nil
}

func result(text string, final bool) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:      final,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
		}},
	}
}

func collect(ch <-chan entities.TranscriptEvent) []entities.TranscriptEvent {
	var events []entities.TranscriptEvent
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestGoogleStreamEvents(t *testing.T) {
	fake := &fakeRecognizeStream{responses: []*speechpb.StreamingRecognizeResponse{
		result("olá", false),
		result("olá robô", true),
		{Results: []*speechpb.StreamingRecognitionResult{{IsFinal: true}}},
		result("tudo bem", true),
	}}
	s := newGoogleStream(context.Background(), fake, zaptest.NewLogger(t))

	if err := s.Stream([]byte{1, 2}); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if err := s.Stream(nil); err != nil {
		t.Fatalf("Stream of empty chunk failed: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("CloseSend failed: %v", err)
	}

	events := collect(s.Events())
	expected := []entities.TranscriptEvent{
		{IsPartial: true, Text: "olá"},
		{IsPartial: false, Text: "olá robô"},
		{IsPartial: false, Text: "tudo bem"},
	}
	if len(events) != len(expected) {
		t.Fatalf("Expected %d events, got %d: %+v", len(expected), len(events), events)
	}
	for i := range expected {
		if events[i] != expected[i] {
			t.Errorf("Event %d: expected %+v, got %+v", i, expected[i], events[i])
		}
	}
	if s.Err() != nil {
		t.Errorf("Unexpected error: %v", s.Err())
	}
	if len(fake.sent) != 1 || !fake.closed {
		t.Errorf("Expected one audio send and a close, got %d sends, closed=%v", len(fake.sent), fake.closed)
	}
}

func TestGoogleStreamRecvError(t *testing.T) {
	fake := &fakeRecognizeStream{recvErr: errors.New("unavailable")}
	s := newGoogleStream(context.Background(), fake, zaptest.NewLogger(t))

	if events := collect(s.Events()); len(events) != 0 {
		t.Errorf("Expected no events, got %+v", events)
	}
	if s.Err() == nil {
		t.Error("Expected an error after failed receive")
	}
}

func TestGoogleStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeRecognizeStream{block: make(chan struct{})}
	s := newGoogleStream(ctx, fake, zaptest.NewLogger(t))

	cancel()
	close(fake.block)

	collect(s.Events())
	if !errors.Is(s.Err(), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", s.Err())
	}
}

func TestGetAudioEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16, false},
		{"", speechpb.RecognitionConfig_LINEAR16, false},
		{"FLAC", speechpb.RecognitionConfig_FLAC, false},
		{"MP3", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
	}
	for _, tt := range tests {
		got, err := getAudioEncoding(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("getAudioEncoding(%q) = %v, %v", tt.in, got, err)
		}
	}
}
