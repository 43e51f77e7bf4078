package claude

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/wastecapture/internal/photostore"
	"github.com/vbonduro/wastecapture/internal/vision"
)

// maxTokens leaves room for a one-line "label | confidence" answer plus any
// preamble the model adds.
const maxTokens = 256

type ClaudeClassifier struct {
	client *anthropic.Client
	model  string
	photos photostore.PhotoStore
}

func NewClaudeClassifier(apiKey, model string, photos photostore.PhotoStore, opts ...anthropic.ClientOption) *ClaudeClassifier {
	return &ClaudeClassifier{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
		photos: photos,
	}
}

func (c *ClaudeClassifier) Classify(ctx context.Context, photoRef string) (*vision.Result, error) {
	imageData, mimeType, err := vision.ReadPhoto(ctx, c.photos, photoRef)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					base64.StdEncoding.EncodeToString(imageData),
				)),
				anthropic.NewTextMessageContent(vision.ClassificationPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call claude: %v", vision.ErrClassificationFailed, err)
	}

	var responseText string
	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			responseText = blk.GetText()
			break
		}
	}

	return vision.ParseResponse(responseText)
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts.
// Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
