package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/provetch/phasecheck/internal/chunker"
	"github.com/provetch/phasecheck/internal/pipeline"
	"github.com/provetch/phasecheck/internal/retrieval"
	"github.com/provetch/phasecheck/internal/session"
	"github.com/provetch/phasecheck/internal/storage"
)

func newTestMCPDeps(t *testing.T, eng *fakeEngine) MCPDeps {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	files, err := storage.NewFiles(t.TempDir())
	if err != nil {
		t.Fatalf("creating file store: %v", err)
	}
	splitter, err := chunker.NewSplitter(500, 80)
	if err != nil {
		t.Fatalf("creating splitter: %v", err)
	}

	return MCPDeps{Service: pipeline.NewService(pipeline.Deps{
		Engine:   eng,
		Vectors:  retrieval.NewSQLiteStore(store.DB()),
		Sessions: session.NewStore(),
		Splitter: splitter,
		Files:    files,
		Store:    store,
	}, pipeline.Options{})}
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content items = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestMCPAskTool(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeEngine{running: true, completion: "Response: fine"})
	handler := mcpAsk(deps)

	res, err := handler(context.Background(), makeCallToolRequest("ask", map[string]any{
		"question": "does the rollout plan cover rollback?",
		"phase":    "deployment",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	var out struct {
		SessionID string `json:"session_id"`
		Phase     string `json:"phase"`
		Answer    string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(textContent(t, res)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if out.Phase != "deployment" {
		t.Errorf("phase = %q, want deployment", out.Phase)
	}
	if out.SessionID == "" {
		t.Error("result should carry a session id")
	}
}

func TestMCPAskToolMissingQuestion(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeEngine{running: true})

	res, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("missing question should yield a tool error")
	}
}

func TestMCPUploadTool(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeEngine{running: true})

	res, err := mcpUpload(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]any{
		"filename": "srs.md",
		"content":  "The system shall export reports. Stakeholder sign-off is required.",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	var out struct {
		DetectedPhase string `json:"detected_phase"`
		ChunkCount    int    `json:"chunk_count"`
	}
	if err := json.Unmarshal([]byte(textContent(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.DetectedPhase != "requirements" {
		t.Errorf("detected phase = %q, want requirements", out.DetectedPhase)
	}
	if out.ChunkCount == 0 {
		t.Error("chunk count should be positive")
	}
}

func TestMCPUploadToolBadBase64(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeEngine{running: true})

	res, err := mcpUpload(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]any{
		"filename": "doc.txt",
		"content":  "not base64 at all!!",
		"encoding": "base64",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("invalid base64 should yield a tool error")
	}
}

func TestMCPSessionTools(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeEngine{running: true, completion: "ok"})

	if _, err := deps.Service.Ask(context.Background(), pipeline.AskRequest{Question: "q"}); err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	res, err := mcpListSessions(deps)(context.Background(), makeCallToolRequest("list_sessions", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var infos []session.Info
	if err := json.Unmarshal([]byte(textContent(t, res)), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("sessions = %d, want 1", len(infos))
	}

	res, err = mcpClearSession(deps)(context.Background(), makeCallToolRequest("clear_session", map[string]any{
		"session_id": infos[0].ID,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}
	if deps.Service.Sessions().Len() != 0 {
		t.Error("session should be cleared")
	}
}
