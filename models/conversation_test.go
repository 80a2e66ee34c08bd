package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr string
	}{
		{
			name: "single user message",
			req:  ChatRequest{Messages: []Message{{Role: RoleUser, Content: "How did I sleep last night?"}}},
		},
		{
			name: "full history",
			req: ChatRequest{Messages: []Message{
				{Role: RoleUser, Content: "hi"},
				{Role: RoleAssistant, Content: "hello"},
				{Role: RoleFunction, Name: "getSleep", Content: "{}"},
			}},
		},
		{
			name:    "empty",
			req:     ChatRequest{},
			wantErr: "messages must not be empty",
		},
		{
			name:    "bad role",
			req:     ChatRequest{Messages: []Message{{Role: "tool", Content: "x"}}},
			wantErr: `messages[0]: unknown role "tool"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
