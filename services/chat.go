package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"

	maxChatMessages      = 20
	maxChatMessageLength = 4000
)

const chatSystemPrompt = `You are the BLAZE Wallet assistant on the BLAZE marketing site.
Answer questions about BLAZE Wallet, its features, the waitlist, the referral leaderboard and the presale.
Keep answers short and friendly. Never give financial or investment advice and never promise returns.
If you do not know something, say so and point the user to the contact form.`

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel streams a completion for a conversation. emit is called once
// per text delta; an emit error stops the stream.
type ChatModel interface {
	Stream(ctx context.Context, system string, history []ChatMessage, emit func(delta string) error) error
}

// GeminiChatModel is a ChatModel backed by the Gemini API.
type GeminiChatModel struct {
	client *genai.Client
	model  string
}

func NewGeminiChatModel(ctx context.Context, apiKey, model string) (*GeminiChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiChatModel{client: client, model: model}, nil
}

func (m *GeminiChatModel) Stream(ctx context.Context, system string, history []ChatMessage, emit func(string) error) error {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == ChatRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	for resp, err := range m.client.Models.GenerateContentStream(ctx, m.model, contents, config) {
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		if text := resp.Text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChatService validates conversations and relays them to the model.
type ChatService struct {
	model  ChatModel
	system string
	log    *zap.Logger
}

// NewChatService accepts a nil model, in which case every call fails with
// ErrChatDisabled.
func NewChatService(model ChatModel, log *zap.Logger) *ChatService {
	return &ChatService{model: model, system: chatSystemPrompt, log: log}
}

func (s *ChatService) Enabled() bool {
	return s.model != nil
}

// Validate normalizes a conversation: roles are checked, blank messages
// dropped, consecutive turns of one role joined, only the most recent
// messages kept starting at a user turn, and the last one must come from
// the user.
func (s *ChatService) Validate(messages []ChatMessage) ([]ChatMessage, error) {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != ChatRoleUser && role != ChatRoleAssistant {
			return nil, fmt.Errorf("%w: unknown chat role %q", ErrInvalidInput, m.Role)
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > maxChatMessageLength {
			return nil, fmt.Errorf("%w: chat message is too long", ErrInvalidInput)
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + content
			continue
		}
		out = append(out, ChatMessage{Role: role, Content: content})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidInput)
	}
	if out[len(out)-1].Role != ChatRoleUser {
		return nil, fmt.Errorf("%w: last message must come from the user", ErrInvalidInput)
	}
	if len(out) > maxChatMessages {
		out = out[len(out)-maxChatMessages:]
	}
	// The model expects the history to open with a user turn.
	for out[0].Role != ChatRoleUser {
		out = out[1:]
	}
	return out, nil
}

// Stream relays model deltas to emit until the completion ends.
func (s *ChatService) Stream(ctx context.Context, messages []ChatMessage, emit func(delta string) error) error {
	if s.model == nil {
		return ErrChatDisabled
	}
	history, err := s.Validate(messages)
	if err != nil {
		return err
	}
	if err := s.model.Stream(ctx, s.system, history, emit); err != nil {
		s.log.Warn("Chat stream failed", zap.Error(err))
		return err
	}
	return nil
}
