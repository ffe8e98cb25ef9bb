package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/povarna/generative-ai-agents/med-agent/internal/pipeline"
)

// ResolveInput is the MCP tool input schema (matches HTTP API field names).
type ResolveInput struct {
	Keyword  string `json:"keyword" jsonschema:"keyword used for the substring search, e.g. fever"`
	Question string `json:"question" jsonschema:"the medical question to answer"`
	Strategy string `json:"strategy,omitempty" jsonschema:"rerank+narrative (default), similarity+narrative or rerank+structured"`
}

// ResolveOutput carries the formatted result; Error names the failed stage.
type ResolveOutput struct {
	Strategy string `json:"strategy"`
	Result   string `json:"result"`
	Error    string `json:"error,omitempty"`
}

type Resolver interface {
	ResolveAnswer(ctx context.Context, keyword, question, strategy string) (*models.Answer, error)
}

// NewResolveHandler returns a tool handler that uses the given resolver.
// Pass the returned function to mcp.AddTool.
func NewResolveHandler(resolver Resolver) func(context.Context, *mcp.CallToolRequest, ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
		return Resolve(ctx, resolver, req, input)
	}
}

// Resolve runs the pipeline. Failures are reported in the output, never as a tool error.
func Resolve(
	ctx context.Context,
	resolver Resolver,
	req *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	answer, err := resolver.ResolveAnswer(ctx, input.Keyword, input.Question, input.Strategy)
	if err != nil {
		return nil, ResolveOutput{
			Strategy: input.Strategy,
			Result:   pipeline.Describe(err),
			Error:    pipeline.Stage(err),
		}, nil
	}

	return nil, ResolveOutput{
		Strategy: string(answer.Strategy),
		Result:   answer.Text(),
	}, nil
}
