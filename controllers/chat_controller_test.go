package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"biotwin/models"
	"biotwin/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStream struct {
	tokens []string
	err    error
	closed bool
}

func (s *stubStream) Recv() (string, error) {
	if len(s.tokens) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

func (s *stubStream) Close() { s.closed = true }

type stubReplier struct {
	stream  *stubStream
	err     error
	history []models.Message
}

func (r *stubReplier) Reply(_ context.Context, history []models.Message) (services.TokenStream, error) {
	r.history = history
	if r.err != nil {
		return nil, r.err
	}
	return r.stream, nil
}

func postChat(t *testing.T, handler *ChatController, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	handler.HandleChat(c)
	return w
}

func TestHandleChat_StreamsReply(t *testing.T) {
	stream := &stubStream{tokens: []string{"I slept ", "well."}}
	replier := &stubReplier{stream: stream}

	w := postChat(t, NewChatController(replier), `{"messages":[{"role":"user","content":"How did I sleep last night?"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "I slept well.", w.Body.String())
	assert.True(t, stream.closed)
	assert.Equal(t, []models.Message{{Role: "user", Content: "How did I sleep last night?"}}, replier.history)
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	w := postChat(t, NewChatController(&stubReplier{}), `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChat_MissingMessages(t *testing.T) {
	w := postChat(t, NewChatController(&stubReplier{}), `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChat_EmptyMessages(t *testing.T) {
	w := postChat(t, NewChatController(&stubReplier{}), `{"messages":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "messages must not be empty", body["error"])
}

func TestHandleChat_UnknownRole(t *testing.T) {
	w := postChat(t, NewChatController(&stubReplier{}), `{"messages":[{"role":"robot","content":"beep"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleChat_ReplyFailure(t *testing.T) {
	replier := &stubReplier{err: errors.New("intent completion failed")}

	w := postChat(t, NewChatController(replier), `{"messages":[{"role":"user","content":"Sleep?"}]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to generate a reply")
}

func TestHandleChat_StreamErrorEndsBody(t *testing.T) {
	stream := &stubStream{tokens: []string{"I slept"}, err: errors.New("connection reset")}

	w := postChat(t, NewChatController(&stubReplier{stream: stream}), `{"messages":[{"role":"user","content":"Sleep?"}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I slept", w.Body.String())
	assert.True(t, stream.closed)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"biotwin"}`, w.Body.String())
}
