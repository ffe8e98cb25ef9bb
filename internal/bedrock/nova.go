package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
)

// Nova messages API request format
type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    string            `json:"role"`
	Content []novaContentPart `json:"content"`
}

type novaContentPart struct {
	Text string `json:"text"`
}

type novaInferenceConfig struct {
	MaxNewTokens int      `json:"max_new_tokens,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"topP,omitempty"`
}

// Nova messages API response format
type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaContentPart `json:"content"`
		} `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
}

// NovaClient invokes Amazon Nova through the messages API.
type NovaClient struct {
	client  *Client
	modelID string
}

func NewNovaClient(client *Client, modelID string) *NovaClient {
	return &NovaClient{
		client:  client,
		modelID: modelID,
	}
}

func (c *NovaClient) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	inference := novaInferenceConfig{MaxNewTokens: request.MaxTokens}
	if request.Temperature > 0 {
		inference.Temperature = &request.Temperature
	}
	if request.TopP > 0 {
		inference.TopP = &request.TopP
	}

	payload := novaRequest{
		Messages: []novaMessage{
			{
				Role:    "user",
				Content: []novaContentPart{{Text: request.Prompt}},
			},
		},
		InferenceConfig: inference,
	}

	body, err := c.client.invoke(ctx, c.modelID, payload)
	if err != nil {
		return nil, err
	}

	var response novaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nova response: %w", err)
	}

	// Extract the response
	var content string
	if len(response.Output.Message.Content) > 0 {
		content = response.Output.Message.Content[0].Text
	}

	return &llm.LLMResponse{
		Content:    content,
		StopReason: response.StopReason,
	}, nil
}
