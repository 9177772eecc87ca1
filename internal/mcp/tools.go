package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
)

const toolClassifyExchange = "classify_exchange"

type classifyInput struct {
	Text        string   `json:"text" jsonschema:"the user/assistant exchange to classify"`
	AutoPersist *bool    `json:"auto_persist,omitempty" jsonschema:"append PERSIST exchanges to memory (default true)"`
	Threshold   *float64 `json:"threshold,omitempty" jsonschema:"PERSIST probability threshold in (0,1); defaults to the configured value"`
}

type classifyOutput struct {
	Decision   string  `json:"decision" jsonschema:"FLUSH or PERSIST"`
	Confidence float64 `json:"confidence" jsonschema:"probability of the chosen decision"`
	Category   string  `json:"category,omitempty" jsonschema:"category of a PERSIST exchange"`
	Persisted  bool    `json:"persisted" jsonschema:"whether the exchange was written to memory"`
	ID         string  `json:"id,omitempty" jsonschema:"stored record id when persisted"`
}

func newClassifyOutput(d gate.Decision) classifyOutput {
	out := classifyOutput{
		Decision:   string(d.Decision),
		Confidence: d.Confidence,
		Persisted:  d.Persisted,
		ID:         d.EntryID,
	}
	if d.Category != nil {
		out.Category = string(*d.Category)
	}
	return out
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolClassifyExchange,
		Description: "Decide whether a conversation exchange is trivial (FLUSH) or worth remembering (PERSIST), tagging and optionally storing PERSIST exchanges",
	}, s.classifyExchange)
}

func (s *Server) classifyExchange(ctx context.Context, req *mcp.CallToolRequest, args classifyInput) (_ *mcp.CallToolResult, out classifyOutput, err error) {
	ctx = logging.WithSurface(ctx, logging.SurfaceMCP)

	call := s.metrics.begin(ctx, toolClassifyExchange)
	defer func() { call.end(out.Decision, err) }()

	if strings.TrimSpace(args.Text) == "" {
		return nil, classifyOutput{}, fmt.Errorf("no text provided: %w", gate.ErrInvalidInput)
	}

	opts := gate.DefaultOptions()
	if args.AutoPersist != nil {
		opts.AutoPersist = *args.AutoPersist
	}
	if args.Threshold != nil {
		if err := classifier.ValidateThreshold(*args.Threshold); err != nil {
			return nil, classifyOutput{}, err
		}
		opts.Threshold = *args.Threshold
	}

	decision, err := s.gate.Process(ctx, args.Text, opts)
	if err != nil {
		s.logger.Error(ctx, "classify_exchange failed", zap.Error(err))
		return nil, classifyOutput{}, fmt.Errorf("classify failed: %w", err)
	}

	out = newClassifyOutput(decision)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summarize(out)},
		},
	}, out, nil
}

func summarize(out classifyOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (confidence %.2f)", out.Decision, out.Confidence)
	if out.Category != "" {
		fmt.Fprintf(&b, " category=%s", out.Category)
	}
	if out.Persisted {
		fmt.Fprintf(&b, " stored as %s", out.ID)
	}
	return b.String()
}
