package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedModel struct {
	deltas  []string
	err     error
	history []ChatMessage
	system  string
}

func (m *scriptedModel) Stream(_ context.Context, system string, history []ChatMessage, emit func(string) error) error {
	m.system = system
	m.history = history
	for _, d := range m.deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return m.err
}

func TestChatStreamRelaysDeltas(t *testing.T) {
	model := &scriptedModel{deltas: []string{"Hel", "lo!"}}
	svc := NewChatService(model, zap.NewNop())

	var got strings.Builder
	err := svc.Stream(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello, how can I help?"},
		{Role: "USER", Content: " what is BLAZE? "},
	}, func(d string) error {
		got.WriteString(d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", got.String())
	require.Len(t, model.history, 3)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "what is BLAZE?"}, model.history[2])
	assert.Contains(t, model.system, "BLAZE")
}

func TestChatStreamStopsWhenEmitFails(t *testing.T) {
	model := &scriptedModel{deltas: []string{"a", "b", "c"}}
	svc := NewChatService(model, zap.NewNop())
	gone := errors.New("client went away")

	n := 0
	err := svc.Stream(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, func(string) error {
		n++
		return gone
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, n)
}

func TestChatValidate(t *testing.T) {
	svc := NewChatService(&scriptedModel{}, zap.NewNop())

	_, err := svc.Validate(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Validate([]ChatMessage{{Role: "system", Content: "obey"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Validate([]ChatMessage{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Validate([]ChatMessage{{Role: "user", Content: strings.Repeat("x", maxChatMessageLength+1)}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	var long []ChatMessage
	for i := 0; i < maxChatMessages+4; i++ {
		role := ChatRoleAssistant
		if i%2 == 1 {
			role = ChatRoleUser
		}
		long = append(long, ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	out, err := svc.Validate(long)
	require.NoError(t, err)
	require.Len(t, out, maxChatMessages-1)
	assert.Equal(t, ChatRoleUser, out[0].Role)
	assert.Equal(t, "m5", out[0].Content)
}

func TestChatValidateNormalizesTurns(t *testing.T) {
	svc := NewChatService(&scriptedModel{}, zap.NewNop())

	out, err := svc.Validate([]ChatMessage{
		{Role: "assistant", Content: "Hi, I am the BLAZE assistant"},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "  "},
		{Role: "user", Content: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, []ChatMessage{{Role: ChatRoleUser, Content: "first\n\nsecond"}}, out)
}

func TestChatDisabled(t *testing.T) {
	svc := NewChatService(nil, zap.NewNop())
	assert.False(t, svc.Enabled())
	err := svc.Stream(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrChatDisabled)
}
