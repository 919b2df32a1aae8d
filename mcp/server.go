// Package mcp exposes the assistant as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/message"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/rag/pipeline"
	"github.com/sweetpotato0/govassist/service"
)

// Tool names.
const (
	ToolAsk      = "ask_government_services"
	ToolRetrieve = "retrieve_passages"
)

// Service is the subset of the pipeline the tools call.
type Service interface {
	Ask(ctx context.Context, req pipeline.Request) (*pipeline.AnswerResult, error)
	Retrieve(ctx context.Context, req pipeline.RetrieveRequest) (*pipeline.RetrieveResult, error)
}

type turn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

type askArgs struct {
	Query          string `json:"query" jsonschema:"Question about a Kerala government service, in English or Malayalam"`
	Service        string `json:"service,omitempty" jsonschema:"Optional service: ration_card, birth_certificate or unemployment_allowance"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"Passages to retrieve, default 3, at most 10"`
	IncludeSources bool   `json:"include_sources,omitempty" jsonschema:"Return the passages the answer is based on"`
	History        []turn `json:"history,omitempty" jsonschema:"Earlier turns of the conversation, oldest first"`
}

type retrieveArgs struct {
	Query   string `json:"query" jsonschema:"Search text"`
	Service string `json:"service,omitempty" jsonschema:"Required. Service to search: ration_card, birth_certificate or unemployment_allowance"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"Passages to return, default 3, at most 10"`
}

// NewServer builds an MCP server with the ask and retrieve tools.
func NewServer(svc Service, version string) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "govassist",
		Title:   "Kerala Government Services Assistant",
		Version: version,
	}, nil)

	addAskTool(server, svc)
	addRetrieveTool(server, svc)
	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, nil)
}

func addAskTool(server *sdkmcp.Server, svc Service) {
	logger := logging.WithComponent("mcp")
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolAsk,
		Description: "Answer a question about Kerala ration cards, birth certificates or unemployment allowance from official service documents",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a askArgs) (*sdkmcp.CallToolResult, any, error) {
		id, err := service.Parse(a.Service)
		if err != nil {
			return nil, nil, err
		}
		history := make([]message.Message, 0, len(a.History))
		for _, h := range a.History {
			history = append(history, message.Message{Role: message.Role(h.Role), Content: h.Content})
		}

		res, err := svc.Ask(ctx, pipeline.Request{
			Query:          a.Query,
			Service:        id,
			TopK:           a.TopK,
			IncludeSources: a.IncludeSources,
			History:        history,
		})
		if err != nil {
			return nil, nil, toolError(logger, ToolAsk, a.Query, err)
		}
		return textResult(res.Answer, res)
	})
}

func addRetrieveTool(server *sdkmcp.Server, svc Service) {
	logger := logging.WithComponent("mcp")
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolRetrieve,
		Description: "Return raw passages from one service's documents without generating an answer",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a retrieveArgs) (*sdkmcp.CallToolResult, any, error) {
		id, err := service.Parse(a.Service)
		if err != nil {
			return nil, nil, err
		}
		res, err := svc.Retrieve(ctx, pipeline.RetrieveRequest{Query: a.Query, Service: id, TopK: a.TopK})
		if err != nil {
			return nil, nil, toolError(logger, ToolRetrieve, a.Query, err)
		}
		return textResult(fmt.Sprintf("%d passages from %s", len(res.Results), res.Service.Title()), res)
	})
}

// errUnavailable replaces internal failures in tool results; details are only logged.
var errUnavailable = errors.New("the request could not be completed, please try again later")

// toolError passes caller mistakes through and hides everything else.
func toolError(logger *slog.Logger, tool, query string, err error) error {
	switch {
	case errors.Is(err, errorskg.ErrInvalidInput),
		errors.Is(err, errorskg.ErrServiceRequired),
		errors.Is(err, errorskg.ErrServiceNotFound):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("tool timed out", "tool", tool, "query", logging.Truncate(query, 80))
		return errors.New("the request timed out, please try again")
	default:
		logger.Error("tool failed", "tool", tool, "query", logging.Truncate(query, 80), "error", err)
		return errUnavailable
	}
}

// textResult returns a short summary followed by the full JSON payload.
func textResult(summary string, payload any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: summary},
			&sdkmcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
