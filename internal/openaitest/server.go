// Package openaitest provides a fake OpenAI chat completions endpoint for tests.
package openaitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// Server answers non-streaming requests with FunctionCall (or a plain
// assistant message when nil) and streaming requests with Tokens.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	requests     []openai.ChatCompletionRequest
	functionCall *openai.FunctionCall
	tokens       []string
	intentStatus int
	streamStatus int
}

func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		tokens:       []string{"Hello", " there"},
		intentStatus: http.StatusOK,
		streamStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleChat)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Client returns a go-openai client pointed at the fake server.
func (s *Server) Client() *openai.Client {
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = s.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func (s *Server) CallFunction(name, arguments string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functionCall = &openai.FunctionCall{Name: name, Arguments: arguments}
}

func (s *Server) ReplyWith(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
}

func (s *Server) FailIntent(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentStatus = status
}

func (s *Server) FailStream(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamStatus = status
}

// Requests returns every chat completion request received so far, in order.
func (s *Server) Requests() []openai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), s.requests...)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	call := s.functionCall
	tokens := s.tokens
	intentStatus, streamStatus := s.intentStatus, s.streamStatus
	s.mu.Unlock()

	if req.Stream {
		if streamStatus != http.StatusOK {
			writeError(w, streamStatus, "stream failed")
			return
		}
		s.writeStream(w, req.Model, tokens)
		return
	}

	if intentStatus != http.StatusOK {
		writeError(w, intentStatus, "intent failed")
		return
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	finish := openai.FinishReasonStop
	if call != nil {
		msg.FunctionCall = call
		finish = openai.FinishReasonFunctionCall
	} else {
		msg.Content = "No function needed."
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:      "chatcmpl-test",
		Object:  "chat.completion",
		Model:   req.Model,
		Choices: []openai.ChatCompletionChoice{{Index: 0, Message: msg, FinishReason: finish}},
	})
}

func (s *Server) writeStream(w http.ResponseWriter, model string, tokens []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, tok := range tokens {
		chunk, _ := json.Marshal(openai.ChatCompletionStreamResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion.chunk",
			Model:  model,
			Choices: []openai.ChatCompletionStreamChoice{{
				Index: 0,
				Delta: openai.ChatCompletionStreamChoiceDelta{Content: tok},
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"test_error"}}`, message)
}
