package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/domain/entities"
)

func TestOpenAIGenerate(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Unexpected authorization %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Oi! Eu sou o Robozinho."},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`)
	}))
	defer server.Close()

	o, err := NewOpenAILLM(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create OpenAI LLM: %v", err)
	}

	turns := entities.History{}.AppendUser("oi").AppendAssistant("Olá").AppendUser("quem é você?")
	reply, err := o.Generate(context.Background(), "Você é o Robozinho.", turns)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if reply != "Oi! Eu sou o Robozinho." {
		t.Errorf("Unexpected reply %q", reply)
	}
	if captured.Model != defaultOpenAIModel {
		t.Errorf("Expected default model, got %s", captured.Model)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("Expected %d messages, got %d", len(wantRoles), len(captured.Messages))
	}
	for i, role := range wantRoles {
		if captured.Messages[i].Role != role {
			t.Errorf("Message %d: expected role %s, got %s", i, role, captured.Messages[i].Role)
		}
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAILLM(OpenAIConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error without API key")
	}
}

func TestOpenAIServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	}))
	defer server.Close()

	o, _ := NewOpenAILLM(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, zaptest.NewLogger(t))
	if _, err := o.Generate(context.Background(), "", entities.History{}.AppendUser("oi")); err == nil {
		t.Error("Expected error on 429")
	}
}
