package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/povarna/generative-ai-agents/med-agent/internal/metrics"
)

// RuntimeAPI is the subset of the Bedrock runtime client used by the model adapters.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client is the process-wide Bedrock runtime client shared by every model adapter.
type Client struct {
	Client RuntimeAPI
	Region string
}

func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Client{
		Client: bedrockruntime.NewFromConfig(cfg),
		Region: region,
	}, nil
}

// invoke marshals payload, calls InvokeModel and returns the raw response body.
func (c *Client) invoke(ctx context.Context, modelID string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize request for %s: %w", modelID, err)
	}

	output, err := c.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		metrics.ModelInvocationsTotal.WithLabelValues(modelID, "error").Inc()
		return nil, fmt.Errorf("unable to invoke model %s: %w", modelID, err)
	}

	metrics.ModelInvocationsTotal.WithLabelValues(modelID, "ok").Inc()
	return output.Body, nil
}
