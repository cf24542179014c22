package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/gemini-relay/backend/internal/config"
)

// ChatModelBackend answers prompts with an eino chat model (Ark in production).
// Each prompt is sent alone; no history is carried between calls.
type ChatModelBackend struct {
	chatModel model.BaseChatModel
}

// NewChatModelBackend wraps chatModel. A nil model yields a backend that reports
// a missing credential on every request.
func NewChatModelBackend(chatModel model.BaseChatModel) *ChatModelBackend {
	return &ChatModelBackend{chatModel: chatModel}
}

func (b *ChatModelBackend) Credential() string {
	return config.ArkKeyEnv
}

func (b *ChatModelBackend) Configured() bool {
	return b.chatModel != nil
}

func (b *ChatModelBackend) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := b.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("chat model returned no message")
	}
	return msg.Content, nil
}
