package stt

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

func TestMockSpeechToText(t *testing.T) {
	tests := []struct {
		name  string
		bytes int
		want  []entities.TranscriptEvent
	}{
		{"silence", 0, nil},
		{"short", 3200, []entities.TranscriptEvent{{IsPartial: true, Text: "Olá"}, {Text: "Olá"}}},
		{"medium", 32000, []entities.TranscriptEvent{{IsPartial: true, Text: "Qual é o seu nome?"}, {Text: "Qual é o seu nome?"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, err := NewMockSpeechToText(zaptest.NewLogger(t)).
				InitTranscribeStreaming(context.Background(), repositories.AudioConfig{SampleRate: 16000})
			if err != nil {
				t.Fatalf("InitTranscribeStreaming failed: %v", err)
			}
			if tt.bytes > 0 {
				stream.Stream(make([]byte, tt.bytes))
			}
			if err := stream.CloseSend(); err != nil {
				t.Fatalf("CloseSend failed: %v", err)
			}

			var got []entities.TranscriptEvent
			for e := range stream.Events() {
				got = append(got, e)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %+v, got %+v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Event %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
