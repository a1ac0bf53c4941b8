package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestAppendUserDoesNotMutateInput(t *testing.T) {
	history := History{
		NewTextTurn(RoleUser, "oi"),
		NewTextTurn(RoleAssistant, "Olá!"),
	}
	before := history.Clone()

	updated := history.AppendUser("tudo bem?")

	if len(history) != 2 {
		t.Fatalf("Expected original history to keep 2 turns, got %d", len(history))
	}
	if !history.HasPrefix(before) || !before.HasPrefix(history) {
		t.Error("Expected original history to be unchanged")
	}
	if len(updated) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(updated))
	}
	if updated[2].Role != RoleUser {
		t.Errorf("Expected user role, got %s", updated[2].Role)
	}
	if updated[2].Text() != "tudo bem?" {
		t.Errorf("Expected prompt text, got %q", updated[2].Text())
	}
}

func TestAppendDoesNotShareBackingArray(t *testing.T) {
	base := make(History, 0, 8)
	base = append(base, NewTextTurn(RoleUser, "a"))

	first := base.AppendUser("b")
	second := base.AppendUser("c")

	if first[1].Text() != "b" {
		t.Errorf("Expected first branch to keep %q, got %q", "b", first[1].Text())
	}
	if second[1].Text() != "c" {
		t.Errorf("Expected second branch to keep %q, got %q", "c", second[1].Text())
	}
}

func TestSuccessfulTurnShape(t *testing.T) {
	histories := []History{
		nil,
		{},
		{NewTextTurn(RoleUser, "1"), NewTextTurn(RoleAssistant, "2")},
		{NewTextTurn(RoleUser, "1"), NewTextTurn(RoleAssistant, "2"), NewTextTurn(RoleUser, "3"), NewTextTurn(RoleAssistant, "4")},
	}

	for i, h := range histories {
		t.Run(fmt.Sprintf("len=%d/%d", len(h), i), func(t *testing.T) {
			prompt := "oi"
			updated := h.AppendUser(prompt).AppendAssistant("resposta")

			if len(updated) != len(h)+2 {
				t.Fatalf("Expected %d turns, got %d", len(h)+2, len(updated))
			}
			if !updated.HasPrefix(h) {
				t.Error("Expected updated history to start with the original")
			}
			if !updated[len(h)].Equal(NewTextTurn(RoleUser, prompt)) {
				t.Errorf("Unexpected user turn: %+v", updated[len(h)])
			}
			if updated[len(h)+1].Role != RoleAssistant {
				t.Errorf("Expected assistant turn last, got %s", updated[len(h)+1].Role)
			}
		})
	}
}

func TestEmptyHistoryScenario(t *testing.T) {
	updated := History{}.AppendUser("oi").AppendAssistant("Olá! Como posso ajudar?")

	roles := updated.Roles()
	if len(roles) != 2 || roles[0] != RoleUser || roles[1] != RoleAssistant {
		t.Errorf("Expected [user assistant], got %v", roles)
	}
}

func TestHistoryJSON(t *testing.T) {
	payload := `[
		{"role":"user","content":[{"type":"text","text":"oi"}]},
		{"role":"assistant","content":"Olá"}
	]`

	var history History
	if err := json.Unmarshal([]byte(payload), &history); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(history))
	}
	if history[1].Text() != "Olá" {
		t.Errorf("Expected string content to become a text block, got %+v", history[1].Content)
	}

	encoded, err := json.Marshal(history)
	if err != nil {
		t.Fatalf("Failed to encode history: %v", err)
	}
	expected := `[{"role":"user","content":[{"type":"text","text":"oi"}]},{"role":"assistant","content":[{"type":"text","text":"Olá"}]}]`
	if string(encoded) != expected {
		t.Errorf("Expected %s, got %s", expected, encoded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		history History
		wantErr bool
	}{
		{"empty", History{}, false},
		{"valid", History{NewTextTurn(RoleUser, "a"), NewTextTurn(RoleAssistant, "b")}, false},
		{"system role", History{NewTextTurn("system", "a")}, true},
		{"image block", History{{Role: RoleUser, Content: []ContentBlock{{Type: "image"}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.history.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTurn) {
				t.Errorf("Expected ErrInvalidTurn, got %v", err)
			}
		})
	}
}
