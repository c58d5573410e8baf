package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/provetch/phasecheck/internal/pipeline"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *pipeline.Service
}

// NewMCPServer creates an MCP server exposing the analysis pipeline as
// tools for agent hosts.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"phasecheck",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("phasecheck — lifecycle-aware document analysis over a local knowledge base."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question against the indexed documents and get a phase-aware compliance analysis."),
			mcp.WithString("question", mcp.Description("The question to analyze"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session to continue; omit to start a new one")),
			mcp.WithString("phase", mcp.Description("Lifecycle phase override (requirements, design, development, testing, deployment, maintenance, auto)")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("upload_document",
			mcp.WithDescription("Index a document into the knowledge base and tag the session with its detected lifecycle phase."),
			mcp.WithString("filename", mcp.Description("Name of the file, extension decides the loader"), mcp.Required()),
			mcp.WithString("content", mcp.Description("File content; base64-encode binary formats"), mcp.Required()),
			mcp.WithString("encoding", mcp.Description("Set to base64 when content is base64-encoded")),
			mcp.WithString("session_id", mcp.Description("Session to attach the upload to; omit to start a new one")),
		),
		mcpUpload(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List live analysis sessions with their phase, turn count, and uploads."),
		),
		mcpListSessions(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_session",
			mcp.WithDescription("Discard a session's history, uploads list, and phase tag."),
			mcp.WithString("session_id", mcp.Description("Session to clear"), mcp.Required()),
		),
		mcpClearSession(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		resp, err := deps.Service.Ask(ctx, pipeline.AskRequest{
			SessionID: req.GetString("session_id", ""),
			Question:  question,
			Phase:     req.GetString("phase", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		out := map[string]any{
			"session_id": resp.SessionID,
			"phase":      resp.Phase.Name,
			"answer":     resp.Answer,
		}
		if resp.Verdict != nil {
			out["verdict"] = resp.Verdict
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpUpload(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filename, err := req.RequireString("filename")
		if err != nil {
			return mcpError("filename is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		data := []byte(content)
		if req.GetString("encoding", "") == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(content)
			if err != nil {
				return mcpError("invalid base64 content"), nil
			}
			data = decoded
		}

		resp, err := deps.Service.Upload(ctx, pipeline.UploadRequest{
			SessionID: req.GetString("session_id", ""),
			Filename:  filename,
			Data:      data,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("upload failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"session_id":     resp.SessionID,
			"filename":       resp.Filename,
			"detected_phase": resp.DetectedPhase,
			"chunk_count":    resp.ChunkCount,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListSessions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		infos := deps.Service.Sessions().List()
		b, err := json.Marshal(infos)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpClearSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		deps.Service.Sessions().Clear(id)
		return mcpText(fmt.Sprintf("Cleared session %s", id)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
