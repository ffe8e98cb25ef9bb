package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
)

// Prompt-completion request format used by the DeepSeek deployment
type deepSeekRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxGenLen   int     `json:"max_gen_len,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// Both response shapes seen from prompt-completion models on Bedrock
type deepSeekResponse struct {
	Generation string `json:"generation"`
	StopReason string `json:"stop_reason"`
	Choices    []struct {
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"choices"`
}

// DeepSeekClient invokes a prompt-completion model (DeepSeek) on Bedrock.
type DeepSeekClient struct {
	client  *Client
	modelID string
}

func NewDeepSeekClient(client *Client, modelID string) *DeepSeekClient {
	return &DeepSeekClient{
		client:  client,
		modelID: modelID,
	}
}

func (c *DeepSeekClient) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	payload := deepSeekRequest{
		Prompt:      request.Prompt,
		Temperature: request.Temperature,
		MaxGenLen:   request.MaxTokens,
		TopP:        request.TopP,
	}

	body, err := c.client.invoke(ctx, c.modelID, payload)
	if err != nil {
		return nil, err
	}

	var response deepSeekResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deepseek response: %w", err)
	}

	if response.Generation == "" && len(response.Choices) > 0 {
		return &llm.LLMResponse{
			Content:    response.Choices[0].Text,
			StopReason: response.Choices[0].StopReason,
		}, nil
	}

	return &llm.LLMResponse{
		Content:    response.Generation,
		StopReason: response.StopReason,
	}, nil
}
