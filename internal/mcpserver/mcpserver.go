// Package mcpserver exposes the chat agent as MCP tools so assistants can
// query the resume the same way the web client does.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/resume-chat/internal/agent"
	"github.com/comigor/resume-chat/internal/history"
	"github.com/comigor/resume-chat/internal/logger"
)

// Chatter is the agent surface the tools need.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
	History(ctx context.Context, limit int) []history.Turn
	Clear(ctx context.Context) (int64, error)
}

// Tools binds the MCP tool handlers to an agent.
type Tools struct {
	chat Chatter
}

// New registers the tools on a fresh MCP server.
func New(chat Chatter, version string) *server.MCPServer {
	t := &Tools{chat: chat}
	s := server.NewMCPServer("resume-chat", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("ask_resume",
		mcp.WithDescription("Ask a question about the resume. The question and answer are added to the shared chat history."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The question to ask")),
	), t.AskResume)

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Return the most recent chat turns, oldest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of turns (default 20)")),
	), t.GetHistory)

	s.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("Delete every stored chat turn."),
	), t.ClearHistory)

	return s
}

// Handler serves the MCP server over streamable HTTP.
func Handler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

type askArgs struct {
	Message string `json:"message"`
}

type historyArgs struct {
	Limit int `json:"limit"`
}

func bindArgs(req mcp.CallToolRequest, v any) error {
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return err
	}
	if string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (t *Tools) AskResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args askArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	answer, err := t.chat.Chat(context.WithoutCancel(ctx), args.Message)
	if err != nil {
		logger.L.Warn("ask_resume failed", "error", err)
		if errors.Is(err, agent.ErrEmptyMessage) {
			return mcp.NewToolResultError("message is required"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (t *Tools) GetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args historyArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	type turn struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	turns := t.chat.History(ctx, args.Limit)
	out := make([]turn, 0, len(turns))
	for _, tr := range turns {
		out = append(out, turn{Role: string(tr.Role), Content: tr.Content})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t *Tools) ClearHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := t.chat.Clear(ctx)
	if err != nil {
		return mcp.NewToolResultError("failed to clear history"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Chat history cleared (%d turns removed)", n)), nil
}
