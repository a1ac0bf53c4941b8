package transcript

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/satriahrh/robozinho/domain/entities"
)

func TestAccumulatorDropsPartials(t *testing.T) {
	acc := &Accumulator{}
	events := []entities.TranscriptEvent{
		{IsPartial: true, Text: "o"},
		{IsPartial: true, Text: "oi tu"},
		{IsPartial: false, Text: "oi tudo bem"},
		{IsPartial: true, Text: "como"},
		{IsPartial: false, Text: "como vai"},
	}

	for _, ev := range events {
		acc.OnEvent(ev)
	}

	if got := acc.FinalizedText(); got != "oi tudo bem como vai" {
		t.Errorf("Expected %q, got %q", "oi tudo bem como vai", got)
	}
	if acc.Segments() != 2 || acc.Partials() != 3 {
		t.Errorf("Unexpected counts: %d finals, %d partials", acc.Segments(), acc.Partials())
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	acc := &Accumulator{}
	acc.OnEvent(entities.TranscriptEvent{IsPartial: true, Text: "hmm"})

	if got := acc.FinalizedText(); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
}

func TestAccumulatorMatchesFinalJoin(t *testing.T) {
	words := []string{"oi", "robô", "qual", "é", "o", "seu", "nome"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		acc := &Accumulator{}
		var finals []string
		for i := rng.Intn(12); i > 0; i-- {
			ev := entities.TranscriptEvent{
				IsPartial: rng.Intn(3) != 0,
				Text:      words[rng.Intn(len(words))],
			}
			if !ev.IsPartial {
				finals = append(finals, ev.Text)
			}
			acc.OnEvent(ev)
		}

		if want := strings.Join(finals, " "); acc.FinalizedText() != want {
			t.Fatalf("Run %d: expected %q, got %q", run, want, acc.FinalizedText())
		}
	}
}
